package resources

import (
	"github.com/iancoleman/strcase"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const SSM_PARAMETER_TYPE = "ssm_parameter"

type (
	// SsmParameter writes a String parameter that other stacks read through [SsmParameterValue].
	SsmParameter struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		ParameterName string               `cfn:"Name"`
		Type          string               `cfn:"Type"`
		Value         any                  `cfn:"Value"`
		Description   string               `cfn:"Description"`
	}

	// SsmParameterValue is a template parameter resolved from SSM at deploy time.
	SsmParameterValue struct {
		Name          string
		ConstructRefs core.ConstructRefSet
		ParameterName string
	}

	// StackParameter is a plain template parameter supplied by the deployer.
	StackParameter struct {
		Name          string
		ConstructRefs core.ConstructRefSet
		Type          string
		Default       string
		Description   string
	}

	StackOutput struct {
		Name          string
		ConstructRefs core.ConstructRefSet
		Value         any
		Description   string
		ExportName    string
	}
)

// ParameterPath is the SSM name of key under the given project prefix.
func ParameterPath(prefix, key string) string {
	return "/" + prefix + "/" + aws.SsmParameterSanitizer.Apply(key)
}

func NewSsmParameter(prefix, key string, value any, refs core.ConstructRefSet) *SsmParameter {
	return &SsmParameter{
		Name:          key,
		ConstructRefs: refs,
		ParameterName: ParameterPath(prefix, key),
		Type:          "String",
		Value:         value,
	}
}

func (p *SsmParameter) BaseConstructRefs() core.ConstructRefSet {
	return p.ConstructRefs
}

// Id returns the id of the cloud resource
func (p *SsmParameter) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     SSM_PARAMETER_TYPE,
		Name:     aws.SsmParameterSanitizer.Apply(p.Name),
	}
}

func (p *SsmParameter) CfnType() string {
	return "AWS::SSM::Parameter"
}

func NewSsmParameterValue(prefix, key string, refs core.ConstructRefSet) *SsmParameterValue {
	return &SsmParameterValue{
		Name:          key,
		ConstructRefs: refs,
		ParameterName: ParameterPath(prefix, key),
	}
}

func (p *SsmParameterValue) BaseConstructRefs() core.ConstructRefSet {
	return p.ConstructRefs
}

// Id returns the id of the cloud resource
func (p *SsmParameterValue) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     SSM_PARAMETER_VALUE_TYPE,
		Name:     aws.SsmParameterSanitizer.Apply(p.Name),
	}
}

func (p *SsmParameterValue) ParameterType() string {
	return "AWS::SSM::Parameter::Value<String>"
}

func (p *SsmParameterValue) ParameterDefault() string {
	return p.ParameterName
}

func (p *SsmParameterValue) ParameterDescription() string {
	return "SSM parameter " + p.ParameterName
}

func (p *StackParameter) BaseConstructRefs() core.ConstructRefSet {
	return p.ConstructRefs
}

// Id returns the id of the cloud resource
func (p *StackParameter) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     STACK_PARAMETER_TYPE,
		Name:     p.Name,
	}
}

func (p *StackParameter) ParameterType() string {
	if p.Type == "" {
		return "String"
	}
	return p.Type
}

func (p *StackParameter) ParameterDefault() string {
	return p.Default
}

func (p *StackParameter) ParameterDescription() string {
	return p.Description
}

// LogicalId is the parameter name itself so the deployer can pass a value for it.
func (p *StackParameter) LogicalId() string {
	return strcase.ToCamel(p.Name)
}

func (o *StackOutput) BaseConstructRefs() core.ConstructRefSet {
	return o.ConstructRefs
}

// Id returns the id of the cloud resource
func (o *StackOutput) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     STACK_OUTPUT_TYPE,
		Name:     o.Name,
	}
}

func (o *StackOutput) OutputValue() any {
	return o.Value
}

func (o *StackOutput) OutputDescription() string {
	return o.Description
}

func (o *StackOutput) OutputExportName() string {
	return o.ExportName
}

func (o *StackOutput) LogicalId() string {
	return strcase.ToCamel(aws.LogicalIdSanitizer.Apply(o.Name))
}
