package cfn

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/multierr"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	// TemplatesCompiler renders a graph of [core.Resource] nodes into a CloudFormation template. Each
	// resource's properties come from its `cfn` struct tags:
	//
	//	`cfn:"Name"`            rendered as property Name, omitted when zero
	//	`cfn:"Name,always"`     rendered even when zero (eg a false bool)
	//	`cfn:"Name,attribute"`  rendered beside Properties (DependsOn, Metadata, DeletionPolicy)
	//	`cfn:"Name,inline"`     a map whose entries are merged into Properties
	//	`cfn:"-"`               never rendered
	//
	// Untagged fields are not rendered.
	TemplatesCompiler struct {
		// resourceGraph is the graph of resources to render
		resourceGraph *core.ResourceGraph
		// logicalIds is a cache from resource id to its logical id
		logicalIds map[core.ResourceId]string
		// idsInUse detects two resources mapping to the same logical id
		idsInUse map[string]core.ResourceId
		// rendered holds every resource rendered so far, for snapshot digests
		rendered map[core.ResourceId]Resource
	}

	tagOptions struct {
		name      string
		always    bool
		attribute bool
		inline    bool
	}
)

func CreateTemplatesCompiler(resources *core.ResourceGraph) *TemplatesCompiler {
	return &TemplatesCompiler{
		resourceGraph: resources,
		logicalIds:    make(map[core.ResourceId]string),
		idsInUse:      make(map[string]core.ResourceId),
		rendered:      make(map[core.ResourceId]Resource),
	}
}

// Compile renders every resource in the graph. All resource failures are reported together.
func (tc *TemplatesCompiler) Compile(description string) (*Template, error) {
	ordered, err := tc.resourceGraph.TopologicalResources()
	if err != nil {
		return nil, err
	}
	t := &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              description,
		Resources:                make(map[string]Resource),
	}
	errs := multierr.Error{}
	for _, res := range ordered {
		logicalId, err := tc.LogicalId(res)
		if err != nil {
			errs.Append(err)
			continue
		}
		switch r := res.(type) {
		case resources.TemplateParameter:
			if t.Parameters == nil {
				t.Parameters = make(map[string]Parameter)
			}
			t.Parameters[logicalId] = Parameter{
				Type:        r.ParameterType(),
				Default:     r.ParameterDefault(),
				Description: r.ParameterDescription(),
			}

		case resources.TemplateOutput:
			output, err := tc.renderOutput(r)
			if err != nil {
				errs.Append(errors.Wrapf(err, "rendering output %s", res.Id()))
				continue
			}
			if t.Outputs == nil {
				t.Outputs = make(map[string]Output)
			}
			t.Outputs[logicalId] = output

		case core.CfnResource:
			rendered, err := tc.renderResource(r)
			if err != nil {
				errs.Append(errors.Wrapf(err, "rendering %s", res.Id()))
				continue
			}
			t.Resources[logicalId] = rendered
			tc.rendered[res.Id()] = rendered

		default:
			errs.Append(errors.Errorf("resource %s has no template representation", res.Id()))
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}
	zap.S().Debugf("compiled %d resources, %d parameters, %d outputs", len(t.Resources), len(t.Parameters), len(t.Outputs))
	return t, nil
}

// LogicalId returns the logical id of res, failing if another resource already claimed it.
func (tc *TemplatesCompiler) LogicalId(res core.Resource) (string, error) {
	id := res.Id()
	if logicalId, ok := tc.logicalIds[id]; ok {
		return logicalId, nil
	}
	logicalId := LogicalId(res)
	if snapshot, ok := res.(resources.Snapshot); ok {
		digest, err := tc.snapshotDigest(snapshot)
		if err != nil {
			return "", errors.Wrapf(err, "logical id of %s", id)
		}
		logicalId += digest
	}
	if other, taken := tc.idsInUse[logicalId]; taken {
		return "", errors.Errorf("logical id %s of %s is already used by %s", logicalId, id, other)
	}
	tc.idsInUse[logicalId] = id
	tc.logicalIds[id] = logicalId
	return logicalId, nil
}

// snapshotDigest is the first 8 hex characters of the SHA-256 over the logical ids and rendered
// definitions of the resources the snapshot captures. They are rendered before the snapshot, since
// it depends on them.
func (tc *TemplatesCompiler) snapshotDigest(snapshot resources.Snapshot) (string, error) {
	h := sha256.New()
	for _, r := range snapshot.SnapshotOf() {
		rendered, ok := tc.rendered[r.Id()]
		if !ok {
			return "", errors.Errorf("%s is not rendered yet", r.Id())
		}
		logicalId, err := tc.LogicalId(r)
		if err != nil {
			return "", err
		}
		body, err := json.Marshal(rendered)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\n%s\n", logicalId, body)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))[:8]), nil
}

func (tc *TemplatesCompiler) renderOutput(out resources.TemplateOutput) (Output, error) {
	value, err := tc.resolveValue(reflect.ValueOf(out.OutputValue()))
	if err != nil {
		return Output{}, err
	}
	rendered := Output{Description: out.OutputDescription(), Value: value}
	if name := out.OutputExportName(); name != "" {
		rendered.Export = &Export{Name: name}
	}
	return rendered, nil
}

func (tc *TemplatesCompiler) renderResource(res core.CfnResource) (Resource, error) {
	rendered := Resource{Type: res.CfnType()}

	resourceVal := reflect.ValueOf(res)
	for resourceVal.Kind() == reflect.Pointer {
		resourceVal = resourceVal.Elem()
	}
	errs := multierr.Error{}
	props := make(map[string]any)
	resourceType := resourceVal.Type()
	for i := 0; i < resourceType.NumField(); i++ {
		field := resourceType.Field(i)
		opts, ok := parseTag(field)
		if !ok {
			continue
		}
		fieldVal := resourceVal.Field(i)
		if !opts.always && isEmpty(fieldVal) {
			continue
		}

		switch {
		case opts.attribute:
			errs.Append(tc.renderAttribute(&rendered, opts.name, fieldVal))

		case opts.inline:
			value, err := tc.resolveValue(fieldVal)
			if err != nil {
				errs.Append(errors.Wrapf(err, "field %s", field.Name))
				continue
			}
			inlined, isMap := value.(map[string]any)
			if !isMap {
				errs.Append(errors.Errorf("field %s: only maps can be inlined, got %T", field.Name, value))
				continue
			}
			for k, v := range inlined {
				if _, exists := props[k]; exists {
					errs.Append(errors.Errorf("field %s: inlined property %s is already set", field.Name, k))
					continue
				}
				props[k] = v
			}

		default:
			value, err := tc.resolveValue(fieldVal)
			if err != nil {
				errs.Append(errors.Wrapf(err, "field %s", field.Name))
				continue
			}
			props[opts.name] = value
		}
	}
	if len(props) > 0 {
		rendered.Properties = props
	}
	return rendered, errs.ErrOrNil()
}

func (tc *TemplatesCompiler) renderAttribute(rendered *Resource, name string, fieldVal reflect.Value) error {
	switch name {
	case "DependsOn":
		deps, err := tc.dependsOn(fieldVal)
		if err != nil {
			return err
		}
		rendered.DependsOn = deps

	case "Metadata":
		value, err := tc.resolveValue(fieldVal)
		if err != nil {
			return errors.Wrap(err, "Metadata")
		}
		metadata, ok := value.(map[string]any)
		if !ok {
			return errors.Errorf("Metadata must be a map, got %T", value)
		}
		rendered.Metadata = metadata

	case "DeletionPolicy":
		if fieldVal.Kind() != reflect.String {
			return errors.Errorf("DeletionPolicy must be a string, got %s", fieldVal.Kind())
		}
		rendered.DeletionPolicy = fieldVal.String()

	default:
		return errors.Errorf("unsupported resource attribute %s", name)
	}
	return nil
}

// dependsOn collects the logical ids of the resource(s) in v, sorted and without duplicates.
func (tc *TemplatesCompiler) dependsOn(v reflect.Value) ([]string, error) {
	var targets []core.Resource
	var collect func(v reflect.Value) error
	collect = func(v reflect.Value) error {
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				if err := collect(v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		case reflect.Pointer, reflect.Interface:
			if v.IsNil() {
				return nil
			}
		}
		r, ok := v.Interface().(core.Resource)
		if !ok {
			return errors.Errorf("DependsOn entries must be resources, got %s", v.Type())
		}
		targets = append(targets, r)
		return nil
	}
	if err := collect(v); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, r := range targets {
		logicalId, err := tc.referenceId(r)
		if err != nil {
			return nil, err
		}
		if !seen[logicalId] {
			seen[logicalId] = true
			ids = append(ids, logicalId)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// referenceId is the logical id of a resource referenced by another. The target must be part of the
// same graph, otherwise the template would point at nothing.
func (tc *TemplatesCompiler) referenceId(r core.Resource) (string, error) {
	if tc.resourceGraph.GetResource(r.Id()) == nil {
		return "", errors.Errorf("reference to %s which is not part of the stack", r.Id())
	}
	return tc.LogicalId(r)
}

// resolveValue translates a Go value into its template form: references become `Ref`/`Fn::GetAtt`,
// joins become `Fn::Join` and tagged structs become objects.
func (tc *TemplatesCompiler) resolveValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
	}
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case core.IaCValue:
			return tc.resolveIaCValue(x)
		case *core.IaCValue:
			return tc.resolveIaCValue(*x)
		case core.Pseudo:
			return map[string]any{"Ref": string(x)}, nil
		case core.Join:
			return tc.resolveJoin(x)
		case core.Resource:
			if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
				return nil, nil
			}
			return tc.resolveIaCValue(core.RefOf(x))
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return tc.resolveValue(v.Elem())

	case reflect.Struct:
		return tc.resolveStruct(v)

	case reflect.Slice, reflect.Array:
		list := make([]any, 0, v.Len())
		errs := multierr.Error{}
		for i := 0; i < v.Len(); i++ {
			item, err := tc.resolveValue(v.Index(i))
			if err != nil {
				errs.Append(errors.Wrapf(err, "[%d]", i))
				continue
			}
			list = append(list, item)
		}
		return list, errs.ErrOrNil()

	case reflect.Map:
		m := make(map[string]any, v.Len())
		errs := multierr.Error{}
		for iter := v.MapRange(); iter.Next(); {
			key := fmt.Sprint(iter.Key().Interface())
			item, err := tc.resolveValue(iter.Value())
			if err != nil {
				errs.Append(errors.Wrapf(err, "[%s]", key))
				continue
			}
			m[key] = item
		}
		return m, errs.ErrOrNil()

	case reflect.String:
		return v.String(), nil

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), nil
	}
	return nil, errors.Errorf("value of type %s cannot be rendered", v.Type())
}

func (tc *TemplatesCompiler) resolveStruct(v reflect.Value) (map[string]any, error) {
	out := make(map[string]any)
	errs := multierr.Error{}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		opts, ok := parseTag(field)
		if !ok {
			continue
		}
		fieldVal := v.Field(i)
		if !opts.always && isEmpty(fieldVal) {
			continue
		}
		if opts.attribute || opts.inline {
			errs.Append(errors.Errorf("field %s: %s is only allowed on resources", field.Name, field.Tag.Get("cfn")))
			continue
		}
		value, err := tc.resolveValue(fieldVal)
		if err != nil {
			errs.Append(errors.Wrapf(err, "field %s", field.Name))
			continue
		}
		out[opts.name] = value
	}
	return out, errs.ErrOrNil()
}

func (tc *TemplatesCompiler) resolveIaCValue(v core.IaCValue) (any, error) {
	if v.Resource == nil {
		return nil, nil
	}
	logicalId, err := tc.referenceId(v.Resource)
	if err != nil {
		return nil, err
	}
	if v.Property == "" {
		return map[string]any{"Ref": logicalId}, nil
	}
	switch v.Resource.(type) {
	case resources.TemplateParameter, resources.TemplateOutput:
		return nil, errors.Errorf("%s has no attribute %s", v.Resource.Id(), v.Property)
	}
	return map[string]any{"Fn::GetAtt": []any{logicalId, v.Property}}, nil
}

func (tc *TemplatesCompiler) resolveJoin(j core.Join) (any, error) {
	values := make([]any, 0, len(j.Values))
	for _, part := range j.Values {
		value, err := tc.resolveValue(reflect.ValueOf(part))
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return map[string]any{"Fn::Join": []any{j.Delimiter, values}}, nil
}

func parseTag(field reflect.StructField) (tagOptions, bool) {
	if !field.IsExported() {
		return tagOptions{}, false
	}
	tag, ok := field.Tag.Lookup("cfn")
	if !ok || tag == "-" {
		return tagOptions{}, false
	}
	parts := strings.Split(tag, ",")
	opts := tagOptions{name: parts[0]}
	if opts.name == "" {
		opts.name = field.Name
	}
	for _, opt := range parts[1:] {
		switch opt {
		case "always":
			opts.always = true
		case "attribute":
			opts.attribute = true
		case "inline":
			opts.inline = true
		}
	}
	return opts, true
}

// isEmpty is a zero value, or an empty slice or map.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	}
	return v.IsZero()
}
