package resources

import (
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/core"
)

const CUSTOM_RESOURCE_TYPE = "custom_resource"

// CustomResource is backed by a Lambda function (ServiceToken). ResourceType is the
// `Custom::<Name>` type; Properties are passed to the handler as-is.
type CustomResource struct {
	Name          string
	ConstructRefs core.ConstructRefSet `cfn:"-"`
	ResourceType  string               `cfn:"-"`
	ServiceToken  any                  `cfn:"ServiceToken"`
	Properties    map[string]any       `cfn:"Properties,inline"`
}

func NewCustomResource(name, resourceType string, serviceToken any, properties map[string]any, refs core.ConstructRefSet) *CustomResource {
	if !strings.HasPrefix(resourceType, "Custom::") {
		resourceType = "Custom::" + resourceType
	}
	return &CustomResource{
		Name:          name,
		ConstructRefs: refs,
		ResourceType:  resourceType,
		ServiceToken:  serviceToken,
		Properties:    properties,
	}
}

func (cr *CustomResource) BaseConstructRefs() core.ConstructRefSet {
	return cr.ConstructRefs
}

// Id returns the id of the cloud resource
func (cr *CustomResource) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     CUSTOM_RESOURCE_TYPE,
		Name:     cr.Name,
	}
}

func (cr *CustomResource) CfnType() string {
	return cr.ResourceType
}

// Attr is a value the handler returned in its response Data.
func (cr *CustomResource) Attr(name string) core.IaCValue {
	return core.AttrOf(cr, name)
}
