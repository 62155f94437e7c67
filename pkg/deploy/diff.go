package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/fatih/color"
	"github.com/oide-iot/mcc-infra/pkg/infra/cfn"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
	"github.com/r3labs/diff"
)

type (
	// StackDiff is what deploying a template would change in its stack.
	StackDiff struct {
		StackName string
		// New is set when the stack does not exist yet; every resource is then created.
		New       bool
		Resources []ResourceDiff
		Outputs   []ResourceDiff
	}

	// ResourceDiff is a change to one resource (or output), by logical id.
	ResourceDiff struct {
		LogicalId string
		Type      string
		// Change is diff.CREATE, diff.DELETE or diff.UPDATE.
		Change string
		// Properties lists the changed paths of an update, relative to the resource.
		Properties diff.Changelog
	}
)

var (
	createColour = color.New(color.FgHiGreen)
	deleteColour = color.New(color.FgHiRed)
	updateColour = color.New(color.FgHiYellow)
	headerColour = color.New(color.Bold)
)

// Empty reports whether deploying would change nothing.
func (sd StackDiff) Empty() bool {
	return !sd.New && len(sd.Resources) == 0 && len(sd.Outputs) == 0
}

// Diff compares each compiled template with the template currently deployed for its stack.
func Diff(ctx context.Context, client CloudFormationAPI, compiled []stack.Synthesized) ([]StackDiff, error) {
	var diffs []StackDiff
	for _, c := range compiled {
		deployed, err := deployedTemplate(ctx, client, c.Stack.Name)
		if err != nil {
			return nil, err
		}
		sd, err := DiffTemplates(c.Stack.Name, deployed, c.Template)
		if err != nil {
			return nil, errors.Wrapf(err, "could not diff %s", c.Stack.Name)
		}
		diffs = append(diffs, sd)
	}
	return diffs, nil
}

// deployedTemplate returns nil when the stack does not exist.
func deployedTemplate(ctx context.Context, client CloudFormationAPI, stackName string) (*cfn.Template, error) {
	out, err := client.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stackName),
		TemplateStage: cfntypes.TemplateStageOriginal,
	})
	if isStackMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not get the template of %s", stackName)
	}
	return cfn.Unmarshal([]byte(aws.ToString(out.TemplateBody)))
}

// DiffTemplates compares the deployed template (nil for a new stack) with the desired one.
func DiffTemplates(stackName string, deployed, desired *cfn.Template) (StackDiff, error) {
	sd := StackDiff{StackName: stackName}
	if deployed == nil {
		sd.New = true
		deployed = &cfn.Template{}
	}

	oldResources, err := normalize(deployed.Resources)
	if err != nil {
		return sd, err
	}
	newResources, err := normalize(desired.Resources)
	if err != nil {
		return sd, err
	}
	sd.Resources, err = diffSection(oldResources, newResources)
	if err != nil {
		return sd, err
	}

	oldOutputs, err := normalize(deployed.Outputs)
	if err != nil {
		return sd, err
	}
	newOutputs, err := normalize(desired.Outputs)
	if err != nil {
		return sd, err
	}
	sd.Outputs, err = diffSection(oldOutputs, newOutputs)
	return sd, err
}

// normalize round-trips v through JSON so both sides of a diff hold the same generic types.
func normalize(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if string(data) == "null" {
		return out, nil
	}
	return out, json.Unmarshal(data, &out)
}

func diffSection(old, new map[string]any) ([]ResourceDiff, error) {
	ids := make(map[string]struct{}, len(old)+len(new))
	for id := range old {
		ids[id] = struct{}{}
	}
	for id := range new {
		ids[id] = struct{}{}
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	var changes []ResourceDiff
	for _, id := range sorted {
		before, hadBefore := old[id]
		after, hasAfter := new[id]
		rd := ResourceDiff{LogicalId: id, Type: resourceType(after)}
		switch {
		case !hadBefore:
			rd.Change = diff.CREATE
		case !hasAfter:
			rd.Change = diff.DELETE
			rd.Type = resourceType(before)
		default:
			differ, err := diff.NewDiffer(diff.SliceOrdering(true))
			if err != nil {
				return nil, err
			}
			cl, err := differ.Diff(before, after)
			if errors.Is(err, diff.ErrTypeMismatch) {
				// a value changed shape (eg literal to intrinsic); report the whole resource
				cl, err = diff.Changelog{{Type: diff.UPDATE, From: before, To: after}}, nil
			}
			if err != nil {
				return nil, errors.Wrapf(err, "could not diff %s", id)
			}
			if len(cl) == 0 {
				continue
			}
			rd.Change = diff.UPDATE
			rd.Properties = cl
		}
		changes = append(changes, rd)
	}
	return changes, nil
}

func resourceType(v any) string {
	if m, ok := v.(map[string]any); ok {
		if t, ok := m["Type"].(string); ok {
			return t
		}
	}
	return ""
}

// Print writes a human readable summary of the diffs, coloured when w is a terminal.
func Print(w io.Writer, diffs []StackDiff) {
	for _, sd := range diffs {
		header := sd.StackName
		if sd.New {
			header += " (new stack)"
		}
		headerColour.Fprintln(w, header)
		if sd.Empty() {
			fmt.Fprintln(w, "  no changes")
			continue
		}
		printSection(w, "Resources", sd.Resources)
		printSection(w, "Outputs", sd.Outputs)
	}
}

func printSection(w io.Writer, name string, changes []ResourceDiff) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", name)
	for _, rd := range changes {
		label := rd.LogicalId
		if rd.Type != "" {
			label += " " + rd.Type
		}
		switch rd.Change {
		case diff.CREATE:
			createColour.Fprintf(w, "    [+] %s\n", label)
		case diff.DELETE:
			deleteColour.Fprintf(w, "    [-] %s\n", label)
		case diff.UPDATE:
			updateColour.Fprintf(w, "    [~] %s\n", label)
			for _, c := range rd.Properties {
				path := strings.Join(c.Path, ".")
				if path == "" {
					path = "(resource)"
				}
				switch c.Type {
				case diff.CREATE:
					fmt.Fprintf(w, "        + %s: %v\n", path, c.To)
				case diff.DELETE:
					fmt.Fprintf(w, "        - %s: %v\n", path, c.From)
				default:
					fmt.Fprintf(w, "        ~ %s: %v -> %v\n", path, c.From, c.To)
				}
			}
		}
	}
}
