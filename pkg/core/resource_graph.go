package core

import (
	"reflect"

	"github.com/oide-iot/mcc-infra/pkg/graph"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	ResourceGraph struct {
		underlying *graph.Directed[Resource]
	}

	Dependency = graph.Edge[Resource]
)

func NewResourceGraph() *ResourceGraph {
	return &ResourceGraph{
		underlying: graph.NewDirected(func(r Resource) string { return r.Id().String() }),
	}
}

func (rg *ResourceGraph) AddResource(resource Resource) {
	if rg.GetResource(resource.Id()) == nil {
		rg.underlying.AddVertex(resource)
		zap.S().Debugf("adding resource: %s", resource.Id())
	}
}

// AddDependency records that source depends on dest, so dest is created first. If either `source` or
// `dest` don't exist in the graph, they are added.
func (rg *ResourceGraph) AddDependency(source Resource, dest Resource) error {
	for _, res := range []Resource{source, dest} {
		rg.AddResource(res)
	}
	if err := rg.underlying.AddEdge(source.Id().String(), dest.Id().String()); err != nil {
		return err
	}
	zap.S().Debugf("adding %s -> %s", source.Id(), dest.Id())
	return nil
}

func (rg *ResourceGraph) GetResource(id ResourceId) Resource {
	r, ok := rg.underlying.GetVertex(id.String())
	if !ok {
		return nil
	}
	return r
}

// GetResourceByName returns the first resource (in id order) of the given type and name regardless
// of namespace.
func (rg *ResourceGraph) GetResourceByName(typ, name string) Resource {
	for _, r := range rg.ListResources() {
		if id := r.Id(); id.Type == typ && id.Name == name {
			return r
		}
	}
	return nil
}

func (rg *ResourceGraph) ListResources() []Resource {
	return rg.underlying.GetAllVertices()
}

func (rg *ResourceGraph) ListDependencies() []Dependency {
	return rg.underlying.GetAllEdges()
}

func (rg *ResourceGraph) GetDownstreamResources(source Resource) []Resource {
	return rg.underlying.OutgoingVertices(source)
}

func (rg *ResourceGraph) GetUpstreamResources(source Resource) []Resource {
	return rg.underlying.IncomingVertices(source)
}

// TopologicalSort returns resource ids (as strings) ordered so that every resource comes after
// everything it depends on.
func (rg *ResourceGraph) TopologicalSort() ([]string, error) {
	return rg.underlying.DependencyOrder()
}

// TopologicalResources is [ResourceGraph.TopologicalSort] resolved to the resources themselves.
func (rg *ResourceGraph) TopologicalResources() ([]Resource, error) {
	ids, err := rg.TopologicalSort()
	if err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(ids))
	for _, id := range ids {
		if r, ok := rg.underlying.GetVertex(id); ok {
			resources = append(resources, r)
		}
	}
	return resources, nil
}

// AddDependenciesReflect uses reflection to inspect the fields of the resource given and add a
// dependency for every resource it references. Unlike a shallow walk, nested values are followed:
//
//   - `Dep        Resource` / `Dep *T`
//   - `Deps       []*T`, `map[string]*T`
//   - `Value      IaCValue` (also inside slices, maps and nested structs)
//   - `Arn        any` holding a [Join] whose Values contain IaCValues
//
// Resources found this way are not themselves walked; call AddDependenciesReflect on each.
// Fields tagged `cfn:"-"` are ignored.
func (rg *ResourceGraph) AddDependenciesReflect(source Resource) error {
	rg.AddResource(source)

	sourceValue := reflect.ValueOf(source)
	if sourceValue.Kind() == reflect.Pointer {
		sourceValue = sourceValue.Elem()
	}
	if sourceValue.Kind() != reflect.Struct {
		return nil
	}
	var errs []error
	rg.walkFields(sourceValue, func(target Resource) {
		if target == nil || reflect.ValueOf(target).IsZero() {
			return
		}
		if target.Id() == source.Id() {
			return
		}
		if err := rg.AddDependency(source, target); err != nil {
			errs = append(errs, errors.Wrapf(err, "adding dependencies of %s", source.Id()))
		}
	})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// AddDependenciesReflectDeep is [ResourceGraph.AddDependenciesReflect] applied to source and then,
// transitively, to everything it references.
func (rg *ResourceGraph) AddDependenciesReflectDeep(source Resource) error {
	queue := []Resource{source}
	seen := make(map[ResourceId]bool)
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if seen[r.Id()] {
			continue
		}
		seen[r.Id()] = true
		if err := rg.AddDependenciesReflect(r); err != nil {
			return err
		}
		for _, dep := range rg.GetDownstreamResources(r) {
			if !seen[dep.Id()] {
				queue = append(queue, dep)
			}
		}
	}
	return nil
}

func (rg *ResourceGraph) walkFields(v reflect.Value, found func(Resource)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("cfn") == "-" {
			continue
		}
		rg.walk(v.Field(i), found)
	}
}

func (rg *ResourceGraph) walk(v reflect.Value, found func(Resource)) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return
		}
	}
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case Resource:
			found(x)
			return
		case IaCValue:
			if x.Resource != nil {
				found(x.Resource)
			}
			return
		case *IaCValue:
			if x.Resource != nil {
				found(x.Resource)
			}
			return
		case Join:
			for _, part := range x.Values {
				rg.walk(reflect.ValueOf(part), found)
			}
			return
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		rg.walk(v.Elem(), found)

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			rg.walk(v.Index(i), found)
		}

	case reflect.Map:
		for iter := v.MapRange(); iter.Next(); {
			rg.walk(iter.Value(), found)
		}

	case reflect.Struct:
		rg.walkFields(v, found)
	}
}
