package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/multierr"
)

type ResourceId struct {
	Provider string `yaml:"provider" json:"provider"`
	Type     string `yaml:"type" json:"type"`
	// Namespace is optional and is used to disambiguate resources that might have the same name,
	// such as two API Gateway resources with the same path part under different parents.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Name      string `yaml:"name" json:"name"`
}

func (id ResourceId) IsZero() bool {
	return id == ResourceId{}
}

func (id ResourceId) String() string {
	s := id.Provider + ":" + id.Type
	if id.Namespace != "" || strings.Contains(id.Name, ":") {
		s += ":" + id.Namespace
	}
	return s + ":" + id.Name
}

func (id ResourceId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

var (
	resourceProviderPattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	resourceTypePattern      = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	resourceNamespacePattern = regexp.MustCompile(`^[a-zA-Z0-9_#./\-:\[\]{}]*$`)
	resourceNamePattern      = regexp.MustCompile(`^[a-zA-Z0-9_#./\-:\[\]{}$+]*$`)
)

func (id *ResourceId) UnmarshalText(data []byte) error {
	parts := strings.Split(string(data), ":")
	if len(parts) < 3 {
		return fmt.Errorf("invalid number of parts (%d) in resource id '%s'", len(parts), string(data))
	}
	if len(parts) > 4 {
		parts = append(parts[:3], strings.Join(parts[3:], ":"))
	}
	id.Provider = parts[0]
	id.Type = parts[1]
	if len(parts) == 4 {
		id.Namespace = parts[2]
		id.Name = parts[3]
	} else {
		id.Namespace = ""
		id.Name = parts[2]
	}
	if err := id.Validate(); err != nil {
		return fmt.Errorf("invalid resource id '%s': %w", string(data), err)
	}
	return nil
}

func (id ResourceId) Validate() error {
	if id.IsZero() {
		return nil
	}
	var errs multierr.Error
	if !resourceProviderPattern.MatchString(id.Provider) {
		errs.Append(fmt.Errorf("invalid provider '%s' (must match %s)", id.Provider, resourceProviderPattern))
	}
	if !resourceTypePattern.MatchString(id.Type) {
		errs.Append(fmt.Errorf("invalid type '%s' (must match %s)", id.Type, resourceTypePattern))
	}
	if id.Namespace != "" && !resourceNamespacePattern.MatchString(id.Namespace) {
		errs.Append(fmt.Errorf("invalid namespace '%s' (must match %s)", id.Namespace, resourceNamespacePattern))
	}
	if !resourceNamePattern.MatchString(id.Name) {
		errs.Append(fmt.Errorf("invalid name '%s' (must match %s)", id.Name, resourceNamePattern))
	}
	return errs.ErrOrNil()
}

// ResourceIdLess orders ids purely by their content, for use when deterministic ordering is
// desired and no other source of ordering is available.
func ResourceIdLess(a, b ResourceId) bool {
	if a.Provider != b.Provider {
		return a.Provider < b.Provider
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.Namespace != b.Namespace {
		return a.Namespace < b.Namespace
	}
	return a.Name < b.Name
}
