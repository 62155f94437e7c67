package coretesting

import (
	"testing"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/graph"
	"github.com/stretchr/testify/assert"
)

type (
	StringDep = graph.Edge[string]

	ResourcesExpectation struct {
		Nodes []string
		Deps  []StringDep

		// AssertSubset assert the graph contains all the `.Nodes` and `.Deps`. If false,
		// checks full equality.
		AssertSubset bool
	}
)

func (expect ResourcesExpectation) Assert(t *testing.T, rg *core.ResourceGraph) {
	var res []string
	for _, r := range rg.ListResources() {
		res = append(res, r.Id().String())
	}
	if expect.AssertSubset {
		assert.Subset(t, res, expect.Nodes)
	} else {
		assert.ElementsMatch(t, expect.Nodes, res)
	}

	var dep []StringDep
	for _, e := range rg.ListDependencies() {
		dep = append(dep, StringDep{Source: e.Source.Id().String(), Destination: e.Destination.Id().String()})
	}

	if expect.AssertSubset {
		assert.Subset(t, dep, expect.Deps)
	} else {
		assert.ElementsMatch(t, expect.Deps, dep)
	}
}

// DummyResource is a minimal [core.Resource] for graph tests.
type DummyResource struct {
	Name string
	Deps []core.Resource
	Ref  core.IaCValue
}

func (d *DummyResource) Id() core.ResourceId {
	return core.ResourceId{Provider: "test", Type: "dummy", Name: d.Name}
}

func (d *DummyResource) BaseConstructRefs() core.ConstructRefSet {
	return core.ConstructRefsOf("test")
}
