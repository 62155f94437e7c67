package resources

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const GREENGRASS_COMPONENT_VERSION_TYPE = "greengrass_component_version"

// GreengrassComponentVersion registers a private component from an inline recipe. InlineRecipe is
// the recipe as a JSON string, or a [core.Join] building one when the recipe embeds deploy-time
// values (such as the artifact bucket name).
type GreengrassComponentVersion struct {
	Name          string
	ConstructRefs core.ConstructRefSet `cfn:"-"`
	InlineRecipe  any                  `cfn:"InlineRecipe"`
}

func NewGreengrassComponentVersion(name string, recipe any, refs core.ConstructRefSet) *GreengrassComponentVersion {
	return &GreengrassComponentVersion{
		Name:          aws.GreengrassComponentSanitizer.Apply(name),
		ConstructRefs: refs,
		InlineRecipe:  recipe,
	}
}

func (comp *GreengrassComponentVersion) BaseConstructRefs() core.ConstructRefSet {
	return comp.ConstructRefs
}

// Id returns the id of the cloud resource
func (comp *GreengrassComponentVersion) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     GREENGRASS_COMPONENT_VERSION_TYPE,
		Name:     comp.Name,
	}
}

func (comp *GreengrassComponentVersion) CfnType() string {
	return "AWS::GreengrassV2::ComponentVersion"
}

func (comp *GreengrassComponentVersion) Arn() core.IaCValue {
	return core.AttrOf(comp, "Arn")
}

func (comp *GreengrassComponentVersion) ComponentName() core.IaCValue {
	return core.AttrOf(comp, "ComponentName")
}

func (comp *GreengrassComponentVersion) ComponentVersion() core.IaCValue {
	return core.AttrOf(comp, "ComponentVersion")
}
