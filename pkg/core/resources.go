package core

import (
	"github.com/oide-iot/mcc-infra/pkg/set"
)

type (
	// Resource is a single cloud resource declaration. Fields that hold other resources (directly,
	// in slices or maps, or through an [IaCValue]) are dependencies; see
	// [ResourceGraph.AddDependenciesReflect].
	Resource interface {
		// Id returns the id of the cloud resource
		Id() ResourceId
		// BaseConstructRefs returns the paths of the constructs that asked for this resource
		BaseConstructRefs() ConstructRefSet
	}

	// CfnResource is a Resource that is rendered into the Resources section of a template.
	CfnResource interface {
		Resource
		CfnType() string
	}

	// ConstructRefSet is the set of construct paths (eg "ApiGatewayToIotPattern") that a resource
	// belongs to.
	ConstructRefSet = set.Set[string]
)

func ConstructRefsOf(paths ...string) ConstructRefSet {
	return set.Of(paths...)
}
