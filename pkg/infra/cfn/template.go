package cfn

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

const FormatVersion = "2010-09-09"

type (
	Template struct {
		AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
		Description              string               `json:"Description,omitempty"`
		Parameters               map[string]Parameter `json:"Parameters,omitempty"`
		Resources                map[string]Resource  `json:"Resources"`
		Outputs                  map[string]Output    `json:"Outputs,omitempty"`
	}

	Parameter struct {
		Type        string `json:"Type"`
		Default     string `json:"Default,omitempty"`
		Description string `json:"Description,omitempty"`
	}

	Resource struct {
		Type           string         `json:"Type"`
		Properties     map[string]any `json:"Properties,omitempty"`
		DependsOn      []string       `json:"DependsOn,omitempty"`
		Metadata       map[string]any `json:"Metadata,omitempty"`
		DeletionPolicy string         `json:"DeletionPolicy,omitempty"`
	}

	Output struct {
		Description string  `json:"Description,omitempty"`
		Value       any     `json:"Value"`
		Export      *Export `json:"Export,omitempty"`
	}

	Export struct {
		Name any `json:"Name"`
	}
)

// Extension is the file extension templates in format are written with.
func Extension(format string) string {
	if format == "yaml" {
		return "yaml"
	}
	return "json"
}

// Marshal renders the template as indented JSON, or as YAML when format is "yaml". Map keys are
// sorted so the same template always renders the same bytes.
func (t *Template) Marshal(format string) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, errors.Wrap(err, "could not encode template")
	}
	switch format {
	case "", "json":
		return buf.Bytes(), nil
	case "yaml":
		out, err := yaml.JSONToYAML(buf.Bytes())
		return out, errors.Wrap(err, "could not convert template to yaml")
	default:
		return nil, errors.Errorf("unsupported template format %q", format)
	}
}

// Unmarshal reads a template previously produced by [Template.Marshal] (in either format).
func Unmarshal(data []byte) (*Template, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not read template")
	}
	t := &Template{}
	if err := json.Unmarshal(jsonData, t); err != nil {
		return nil, errors.Wrap(err, "could not decode template")
	}
	return t, nil
}
