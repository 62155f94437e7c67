package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type (
	// IaCValue is a value only known once the referenced resource exists. An empty Property is the
	// resource's primary identifier (a CloudFormation `Ref`), anything else is an attribute
	// (`Fn::GetAtt`).
	IaCValue struct {
		Resource Resource
		Property string
	}

	// Pseudo is a CloudFormation pseudo parameter.
	Pseudo string

	// Join concatenates Values with Delimiter at deploy time. Values may be strings, [IaCValue],
	// [Pseudo] or nested Joins.
	Join struct {
		Delimiter string
		Values    []any
	}
)

const (
	AccountId Pseudo = "AWS::AccountId"
	Region    Pseudo = "AWS::Region"
	Partition Pseudo = "AWS::Partition"
	URLSuffix Pseudo = "AWS::URLSuffix"
	StackName Pseudo = "AWS::StackName"
)

func RefOf(r Resource) IaCValue {
	return IaCValue{Resource: r}
}

func AttrOf(r Resource, property string) IaCValue {
	return IaCValue{Resource: r, Property: property}
}

func (v IaCValue) IsZero() bool {
	return v.Resource == nil
}

func (v IaCValue) String() string {
	if v.Resource == nil {
		return ""
	}
	if v.Property == "" {
		return v.Resource.Id().String()
	}
	return v.Resource.Id().String() + "#" + v.Property
}

// Concat joins parts with no delimiter. Adjacent literal strings are merged and nested
// empty-delimiter Joins flattened, so a Concat with no references collapses to a plain string.
func Concat(parts ...any) any {
	var values []any
	var literal strings.Builder
	hasLiteral := false
	flush := func() {
		if hasLiteral {
			values = append(values, literal.String())
			literal.Reset()
			hasLiteral = false
		}
	}
	var add func(p any)
	add = func(p any) {
		switch p := p.(type) {
		case string:
			literal.WriteString(p)
			hasLiteral = true
		case Join:
			if p.Delimiter == "" {
				for _, v := range p.Values {
					add(v)
				}
				return
			}
			flush()
			values = append(values, p)
		case nil:
		default:
			flush()
			values = append(values, p)
		}
	}
	for _, p := range parts {
		add(p)
	}
	flush()
	switch len(values) {
	case 0:
		return ""
	case 1:
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	return Join{Values: values}
}

// maxMarkerAttempts bounds the search for a reference marker absent from the literal text.
const maxMarkerAttempts = 64

// JSONString serializes v as JSON. References inside v (at any depth, including inside Joins that
// build string leaves) survive as deploy-time values: the result is a plain string when v holds no
// references, otherwise a [Join] that produces the JSON document.
func JSONString(v any) (any, error) {
	for attempt := 0; attempt < maxMarkerAttempts; attempt++ {
		tk := &tokenizer{marker: fmt.Sprintf("@@ref%d:", attempt)}
		replaced, err := tk.tokenize(reflect.ValueOf(v))
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(replaced)
		if err != nil {
			return nil, err
		}
		s := string(b)
		if len(tk.refs) == 0 {
			return s, nil
		}
		// A literal already containing the marker would be mistaken for a reference.
		if strings.Count(s, tk.marker) != len(tk.refs) {
			continue
		}
		return tk.split(s)
	}
	return nil, fmt.Errorf("could not find a reference marker absent from the value after %d attempts", maxMarkerAttempts)
}

type tokenizer struct {
	marker string
	refs   []any
}

func (tk *tokenizer) token(ref any) string {
	tk.refs = append(tk.refs, ref)
	return fmt.Sprintf("%s%d@@", tk.marker, len(tk.refs)-1)
}

// split cuts s at each token, putting the reference it stands for in its place.
func (tk *tokenizer) split(s string) (any, error) {
	pattern := regexp.MustCompile(regexp.QuoteMeta(tk.marker) + `(\d+)@@`)
	var parts []any
	last := 0
	for _, loc := range pattern.FindAllStringSubmatchIndex(s, -1) {
		idx, err := strconv.Atoi(s[loc[2]:loc[3]])
		if err != nil || idx >= len(tk.refs) {
			return nil, fmt.Errorf("invalid reference token %q", s[loc[0]:loc[1]])
		}
		parts = append(parts, s[last:loc[0]], tk.refs[idx])
		last = loc[1]
	}
	parts = append(parts, s[last:])
	return Concat(parts...), nil
}

// tokenize rebuilds v as plain JSON-able values, swapping every reference for a token that is
// later split back out of the serialized string.
func (tk *tokenizer) tokenize(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case IaCValue:
			return tk.token(x), nil
		case Pseudo:
			return tk.token(x), nil
		case Join:
			var sb strings.Builder
			for i, part := range x.Values {
				if i > 0 {
					sb.WriteString(x.Delimiter)
				}
				t, err := tk.tokenize(reflect.ValueOf(part))
				if err != nil {
					return nil, err
				}
				s, ok := t.(string)
				if !ok {
					return nil, fmt.Errorf("join value %v is not a string", part)
				}
				sb.WriteString(s)
			}
			return sb.String(), nil
		case json.Marshaler:
			return x, nil
		}
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return tk.tokenize(v.Elem())

	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			t, err := tk.tokenize(v.MapIndex(k))
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k.Interface())] = t
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any{}, nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			t, err := tk.tokenize(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil

	case reflect.Struct:
		// Structs carry their own json tags; references are not supported inside them.
		return v.Interface(), nil

	default:
		return v.Interface(), nil
	}
}
