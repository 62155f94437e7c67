package greengrass

import (
	"sort"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/pkg/errors"
)

// Components is the `components` document of a Greengrass deployment, keyed by component name.
// Entries are plain maps so they may hold deploy-time references (such as a private component's
// registered version).
type Components map[string]map[string]any

// Names returns the component names in sorted order.
func (c Components) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document renders the components as the JSON string the deployment handler receives.
func (c Components) Document() (any, error) {
	doc, err := core.JSONString(map[string]map[string]any(c))
	if err != nil {
		return nil, errors.Wrap(err, "could not render components document")
	}
	return doc, nil
}

func (c Components) add(name string, entry map[string]any) error {
	if _, ok := c[name]; ok {
		return errors.Errorf("component %s is already part of the deployment", name)
	}
	c[name] = entry
	return nil
}

// PublicComponentTemplate adds a public (AWS or community provided) component to the deployment at
// a fixed version. A ConfigurationUpdate `merge` or `reset` value that is not already a string is
// serialized to JSON, matching what the Greengrass API expects.
type PublicComponentTemplate struct {
	ComponentName       string
	ComponentVersion    string
	ConfigurationUpdate map[string]any
}

func (tmpl PublicComponentTemplate) AddTo(components Components) error {
	if tmpl.ComponentName == "" {
		return errors.New("public component name is required")
	}
	if tmpl.ComponentVersion == "" {
		return errors.Errorf("public component %s has no version", tmpl.ComponentName)
	}
	entry := map[string]any{"componentVersion": tmpl.ComponentVersion}
	if len(tmpl.ConfigurationUpdate) > 0 {
		update := make(map[string]any, len(tmpl.ConfigurationUpdate))
		for key, value := range tmpl.ConfigurationUpdate {
			switch key {
			case "merge":
				if _, ok := value.(string); !ok {
					s, err := core.JSONString(value)
					if err != nil {
						return errors.Wrapf(err, "could not serialize merge of %s", tmpl.ComponentName)
					}
					value = s
				}
			case "reset":
			default:
				return errors.Errorf("public component %s: unsupported configurationUpdate key %q", tmpl.ComponentName, key)
			}
			update[key] = value
		}
		entry["configurationUpdate"] = update
	}
	return components.add(tmpl.ComponentName, entry)
}
