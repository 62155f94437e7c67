// Package ggdeploy is the CloudFormation custom resource that deploys Greengrass components to a
// thing group.
package ggdeploy

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ResourceType = "Custom::ComponentDeployment"

	TargetArnProperty      = "TARGET_ARN"
	DeploymentNameProperty = "DEPLOYMENT_NAME"
	// ComponentsProperty is a JSON object of component name to
	// `{componentVersion, configurationUpdate: {merge, reset}}`.
	ComponentsProperty = "COMPONENTS"

	// CreateFailedPhysicalId is reported when Create fails, so the rollback Delete has a physical id
	// that is known not to name a deployment.
	CreateFailedPhysicalId = "create-failed"
)

type (
	GreengrassAPI interface {
		CreateDeployment(ctx context.Context, in *greengrassv2.CreateDeploymentInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.CreateDeploymentOutput, error)
		GetDeployment(ctx context.Context, in *greengrassv2.GetDeploymentInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.GetDeploymentOutput, error)
		CancelDeployment(ctx context.Context, in *greengrassv2.CancelDeploymentInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.CancelDeploymentOutput, error)
		DeleteDeployment(ctx context.Context, in *greengrassv2.DeleteDeploymentInput, optFns ...func(*greengrassv2.Options)) (*greengrassv2.DeleteDeploymentOutput, error)
	}

	Handler struct {
		Client GreengrassAPI
		// ClientToken makes CreateDeployment idempotent per request. Defaults to a random UUID.
		ClientToken func() string
	}

	// Properties are the custom resource's properties.
	Properties struct {
		TargetArn      string
		DeploymentName string
		Components     map[string]types.ComponentDeploymentSpecification
	}

	componentEntry struct {
		ComponentVersion    string `json:"componentVersion"`
		ConfigurationUpdate *struct {
			Merge json.RawMessage `json:"merge"`
			Reset []string        `json:"reset"`
		} `json:"configurationUpdate"`
	}
)

func NewHandler(client GreengrassAPI) *Handler {
	return &Handler{Client: client, ClientToken: uuid.NewString}
}

// Handle creates (or revises) the deployment on Create and Update and removes it on Delete. The
// physical id is the deployment id.
func (h *Handler) Handle(ctx context.Context, event cfn.Event) (string, map[string]any, error) {
	log := zap.S().With("request", event.RequestType, "resource", event.LogicalResourceID)

	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate:
		// a failed Update keeps the current deployment
		failedId := event.PhysicalResourceID
		if event.RequestType == cfn.RequestCreate {
			failedId = CreateFailedPhysicalId
		}
		props, err := ParseProperties(event.ResourceProperties)
		if err != nil {
			return failedId, nil, err
		}
		out, err := h.Client.CreateDeployment(ctx, &greengrassv2.CreateDeploymentInput{
			TargetArn:      aws.String(props.TargetArn),
			DeploymentName: aws.String(props.DeploymentName),
			Components:     props.Components,
			ClientToken:    aws.String(h.clientToken()),
		})
		if err != nil {
			return failedId, nil, errors.Wrapf(err, "could not deploy to %s", props.TargetArn)
		}
		id := aws.ToString(out.DeploymentId)
		log.Infow("created deployment", "deploymentId", id, "target", props.TargetArn, "components", componentNames(props.Components))
		return id, map[string]any{
			"DeploymentId": id,
			"IotJobId":     aws.ToString(out.IotJobId),
		}, nil

	case cfn.RequestDelete:
		return event.PhysicalResourceID, nil, h.delete(ctx, event.PhysicalResourceID)

	default:
		return event.PhysicalResourceID, nil, errors.Errorf("unsupported request type %q", event.RequestType)
	}
}

// delete cancels the deployment if it is still active, then deletes it. A deployment that no
// longer exists is already deleted, and so is one that was never created: Greengrass deployment
// ids are UUIDs, while a failed Create leaves [CreateFailedPhysicalId] or the Lambda log stream
// name.
func (h *Handler) delete(ctx context.Context, id string) error {
	log := zap.S().With("deploymentId", id)
	if _, err := uuid.Parse(id); err != nil {
		log.Info("no deployment was created")
		return nil
	}
	deployment, err := h.Client.GetDeployment(ctx, &greengrassv2.GetDeploymentInput{DeploymentId: aws.String(id)})
	if isNotFound(err) {
		log.Info("deployment already gone")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "could not get deployment %s", id)
	}
	if deployment.DeploymentStatus == types.DeploymentStatusActive {
		if _, err := h.Client.CancelDeployment(ctx, &greengrassv2.CancelDeploymentInput{DeploymentId: aws.String(id)}); err != nil && !isNotFound(err) {
			return errors.Wrapf(err, "could not cancel deployment %s", id)
		}
		log.Info("cancelled deployment")
	}
	_, err = h.Client.DeleteDeployment(ctx, &greengrassv2.DeleteDeploymentInput{DeploymentId: aws.String(id)})
	if err != nil && !isNotFound(err) {
		return errors.Wrapf(err, "could not delete deployment %s", id)
	}
	log.Info("deleted deployment")
	return nil
}

func (h *Handler) clientToken() string {
	if h.ClientToken == nil {
		return uuid.NewString()
	}
	return h.ClientToken()
}

// ParseProperties reads the target, deployment name and components from the resource properties.
func ParseProperties(props map[string]any) (Properties, error) {
	var p Properties
	var ok bool
	if p.TargetArn, ok = props[TargetArnProperty].(string); !ok || p.TargetArn == "" {
		return p, errors.Errorf("%s is required", TargetArnProperty)
	}
	if p.DeploymentName, ok = props[DeploymentNameProperty].(string); !ok || p.DeploymentName == "" {
		return p, errors.Errorf("%s is required", DeploymentNameProperty)
	}
	doc, ok := props[ComponentsProperty].(string)
	if !ok {
		return p, errors.Errorf("%s must be a JSON string", ComponentsProperty)
	}
	var entries map[string]componentEntry
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		return p, errors.Wrapf(err, "invalid %s", ComponentsProperty)
	}
	if len(entries) == 0 {
		return p, errors.Errorf("%s has no components", ComponentsProperty)
	}

	p.Components = make(map[string]types.ComponentDeploymentSpecification, len(entries))
	for name, e := range entries {
		if e.ComponentVersion == "" {
			return p, errors.Errorf("component %s has no componentVersion", name)
		}
		spec := types.ComponentDeploymentSpecification{ComponentVersion: aws.String(e.ComponentVersion)}
		if u := e.ConfigurationUpdate; u != nil {
			update := &types.ComponentConfigurationUpdate{Reset: u.Reset}
			if merge, err := mergeDocument(u.Merge); err != nil {
				return p, errors.Wrapf(err, "component %s", name)
			} else if merge != "" {
				update.Merge = aws.String(merge)
			}
			spec.ConfigurationUpdate = update
		}
		p.Components[name] = spec
	}
	return p, nil
}

// mergeDocument accepts the merge update either as the JSON string Greengrass expects or as an
// object, which is serialized.
func mergeDocument(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", errors.New("merge must be a JSON string or object")
	}
	return string(raw), nil
}

func componentNames(components map[string]types.ComponentDeploymentSpecification) []string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
