package templateutils

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
)

var Funcs = template.FuncMap{
	"joinString": strings.Join,

	"json": func(v any) (string, error) {
		buf := new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()), nil
	},

	// shellQuote single-quotes s for POSIX shells.
	"shellQuote": func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
	},
}

// Parse parses text with [Funcs] and sprig's hermetic function map available.
func Parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).
		Funcs(sprig.HermeticTxtFuncMap()).
		Funcs(Funcs).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse template %s", name)
	}
	return t, nil
}

// Render parses and executes text against data.
func Render(name, text string, data any) (string, error) {
	t, err := Parse(name, text)
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, data); err != nil {
		return "", errors.Wrapf(err, "could not render template %s", name)
	}
	return buf.String(), nil
}
