package stacks

import (
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/constructs/greengrass"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/ggdeploy"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
)

const (
	ComponentDeploymentResourceType = ggdeploy.ResourceType

	// Custom resource properties read by gg-deploy-handler.
	TargetArnProperty      = ggdeploy.TargetArnProperty
	DeploymentNameProperty = ggdeploy.DeploymentNameProperty
	ComponentsProperty     = ggdeploy.ComponentsProperty

	deployProviderTimeout = 600
)

// ComponentDeploymentStack registers the project's component and deploys it, along with the
// configured public components, to the thing group through a custom resource.
type ComponentDeploymentStack struct {
	*stack.Stack
	Thing      *greengrass.ThingComponent
	Components greengrass.Components
	Provider   *resources.LambdaFunction
	Deployment *resources.CustomResource
}

func NewComponentDeploymentStack(app *stack.App, cfg *config.ComponentDeploymentConfig) (*ComponentDeploymentStack, error) {
	s := &ComponentDeploymentStack{
		Stack:      app.NewStack(config.ComponentDeploymentSection, cfg.Name, "Greengrass component deployment"),
		Components: greengrass.Components{},
	}
	prefix := s.ProjectPrefix

	var bucketPrefix string
	upload, err := s.Config.ComponentUpload()
	if err != nil {
		return nil, err
	}
	if upload != nil {
		bucketPrefix = upload.BucketPrefix
	}

	s.Thing, err = greengrass.NewThingComponent(s.Graph, s.Components, greengrass.ThingComponentProps{
		ProjectPrefix: prefix,
		Config:        cfg.Thing,
		Bucket:        s.GetParameter(UploadBucketNameParameter),
		BucketPrefix:  bucketPrefix,
		Refs:          s.Refs(cfg.Thing.Name),
	})
	if err != nil {
		return nil, err
	}

	for _, pc := range cfg.PublicComponents {
		tmpl := greengrass.PublicComponentTemplate{
			ComponentName:       pc.Name,
			ComponentVersion:    pc.Version,
			ConfigurationUpdate: pc.ConfigurationUpdate,
		}
		if err := tmpl.AddTo(s.Components); err != nil {
			return nil, err
		}
	}

	if err := s.createProvider(cfg); err != nil {
		return nil, err
	}

	components, err := s.Components.Document()
	if err != nil {
		return nil, err
	}
	targetArn := core.Concat("arn:aws:iot:", core.Region, ":", core.AccountId, ":thinggroup/", s.GetParameter(ThingGroupNameParameter))
	s.Deployment = resources.NewCustomResource(
		"ComponentDeploymentCustomResource",
		ComponentDeploymentResourceType,
		s.Provider.Arn(),
		map[string]any{
			TargetArnProperty:      targetArn,
			DeploymentNameProperty: cfg.DeploymentName,
			ComponentsProperty:     components,
		},
		s.Refs("Deployment"),
	)
	if err := s.Add(s.Deployment); err != nil {
		return nil, err
	}

	if _, err := s.AddOutput("ComponentName", "", s.Thing.ComponentName); err != nil {
		return nil, err
	}
	if _, err := s.AddOutput("DeploymentId", "Greengrass deployment of the thing group", s.Deployment.Attr("DeploymentId")); err != nil {
		return nil, err
	}
	s.Log().Debugf("deploying %v", s.Components.Names())
	return s, nil
}

// createProvider declares the Lambda function backing the deployment custom resource.
func (s *ComponentDeploymentStack) createProvider(cfg *config.ComponentDeploymentConfig) error {
	const baseName = "ComponentDeploymentProviderLambda"
	lambdaName := s.ProjectPrefix + "-" + baseName

	role := &resources.IamRole{}
	err := role.Create(s.Graph, resources.RoleCreateParams{
		Name:            baseName + "Role",
		RoleName:        lambdaName + "Role",
		AssumedBy:       []string{"lambda.amazonaws.com"},
		ManagedPolicies: []any{resources.LAMBDA_BASIC_EXECUTION_POLICY},
		InlinePolicies: []*resources.IamInlinePolicy{
			{
				PolicyName:     baseName + "Policy",
				PolicyDocument: resources.CreateAllowPolicyDocument([]string{"iot:*", "greengrass:*"}, []any{"*"}),
			},
		},
		Refs: s.Refs("Provider"),
	})
	if err != nil {
		return err
	}

	code, err := s.AddCodeAsset(baseName, cfg.HandlerCode)
	if err != nil {
		return errors.Wrap(err, "could not package the deployment handler (build it with `GOOS=linux GOARCH=arm64 go build -o out/gg-deploy-handler/bootstrap ./cmd/gg-deploy-handler`)")
	}

	s.Provider = &resources.LambdaFunction{}
	err = s.Provider.Create(s.Graph, resources.LambdaCreateParams{
		Name:         baseName,
		FunctionName: lambdaName + "Function",
		Role:         role,
		Code:         code,
		Handler:      "bootstrap",
		Runtime:      resources.LAMBDA_GO_RUNTIME,
		Timeout:      deployProviderTimeout,
		Refs:         s.Refs("Provider"),
	})
	return err
}
