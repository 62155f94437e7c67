package resources

import "github.com/oide-iot/mcc-infra/pkg/core"

const AWS_PROVIDER = "aws"

// Template-level pseudo types; these never become entries in the Resources section.
const (
	STACK_PARAMETER_TYPE     = "stack_parameter"
	SSM_PARAMETER_VALUE_TYPE = "ssm_parameter_value"
	STACK_OUTPUT_TYPE        = "stack_output"
)

type (
	// TemplateParameter is rendered into a template's Parameters section and referenced with `Ref`.
	TemplateParameter interface {
		ParameterType() string
		ParameterDefault() string
		ParameterDescription() string
	}

	// TemplateOutput is rendered into a template's Outputs section.
	TemplateOutput interface {
		OutputValue() any
		OutputDescription() string
		OutputExportName() string
	}

	// LogicalIdentifier resources keep a fixed logical id instead of a generated one, so that deploy
	// tooling can address them by name.
	LogicalIdentifier interface {
		LogicalId() string
	}

	// Snapshot resources capture the state of other resources when they are created. Their logical
	// id carries a digest of those resources' rendered definitions, so any change to them replaces
	// the snapshot instead of leaving it stale.
	Snapshot interface {
		SnapshotOf() []core.Resource
	}
)
