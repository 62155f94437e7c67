package stacks

import (
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/stack"
)

// ThingInstallerStack holds what a Greengrass core device needs before it can be provisioned: the
// thing group deployments target, the token exchange role with its alias, and the device policy.
type ThingInstallerStack struct {
	*stack.Stack
	ThingGroup        *resources.IotThingGroup
	TokenExchangeRole *resources.IamRole
	RoleAlias         *resources.IotRoleAlias
	Policy            *resources.IotPolicy
}

func NewThingInstallerStack(app *stack.App, cfg *config.ThingInstallerConfig) (*ThingInstallerStack, error) {
	s := &ThingInstallerStack{
		Stack: app.NewStack(config.ThingInstallerSection, cfg.Name, "Greengrass core device provisioning"),
	}
	prefix := s.ProjectPrefix

	s.ThingGroup = resources.NewIotThingGroup(cfg.ThingGroupName, s.Refs("ThingGroup"))
	if err := s.Add(s.ThingGroup); err != nil {
		return nil, err
	}

	s.TokenExchangeRole = &resources.IamRole{}
	err := s.TokenExchangeRole.Create(s.Graph, resources.RoleCreateParams{
		Name:      "GreengrassV2TokenExchangeRole",
		RoleName:  prefix + "-GreengrassV2TokenExchangeRole",
		AssumedBy: []string{"credentials.iot.amazonaws.com"},
		InlinePolicies: []*resources.IamInlinePolicy{
			{
				PolicyName:     "GreengrassV2TokenExchangeRoleAccess",
				PolicyDocument: resources.CreateAllowPolicyDocument(cfg.TokenExchangeActions, []any{"*"}),
			},
		},
		Refs: s.Refs("TokenExchangeRole"),
	})
	if err != nil {
		return nil, err
	}

	s.RoleAlias = resources.NewIotRoleAlias(cfg.RoleAliasName, s.TokenExchangeRole, s.Refs("RoleAlias"))
	if err := s.Add(s.RoleAlias); err != nil {
		return nil, err
	}

	s.Policy = resources.NewIotPolicy(cfg.IoTPolicyName, coreDevicePolicy(s.RoleAlias), s.Refs("Policy"))
	if err := s.Add(s.Policy); err != nil {
		return nil, err
	}

	params := []struct {
		key   string
		value string
	}{
		{ThingGroupNameParameter, s.ThingGroup.ThingGroupName},
		{RoleAliasNameParameter, s.RoleAlias.RoleAlias},
		{IotPolicyNameParameter, s.Policy.PolicyName},
	}
	for _, p := range params {
		if _, err := s.PutParameter(p.key, p.value); err != nil {
			return nil, err
		}
	}

	outputs := []struct {
		name, description string
		value             any
	}{
		{"ThingGroupName", "Thing group targeted by component deployments", s.ThingGroup.ThingGroupName},
		{"ThingGroupArn", "", s.ThingGroup.Arn()},
		{"RoleAliasName", "Role alias core devices use for AWS credentials", s.RoleAlias.RoleAlias},
		{"TokenExchangeRoleArn", "", s.TokenExchangeRole.Arn()},
		{"IoTPolicyName", "Policy to attach to core device certificates", s.Policy.PolicyName},
	}
	for _, o := range outputs {
		if _, err := s.AddOutput(o.name, o.description, o.value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// coreDevicePolicy is the minimal policy of a Greengrass V2 core device, including shadow access for
// the shadow manager and the right to exchange its certificate for the token exchange role.
func coreDevicePolicy(alias *resources.IotRoleAlias) *resources.PolicyDocument {
	return &resources.PolicyDocument{
		Version: resources.VERSION,
		Statement: []resources.StatementEntry{
			{
				Effect:   "Allow",
				Action:   []string{"iot:Connect", "iot:Publish", "iot:Subscribe", "iot:Receive", "greengrass:*"},
				Resource: []any{"*"},
			},
			{
				Effect:   "Allow",
				Action:   []string{"iot:GetThingShadow", "iot:UpdateThingShadow", "iot:DeleteThingShadow"},
				Resource: []any{"*"},
			},
			{
				Effect:   "Allow",
				Action:   []string{"iot:AssumeRoleWithCertificate"},
				Resource: []any{alias.Arn()},
			},
		},
	}
}
