package resources

import (
	"fmt"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const (
	IAM_ROLE_TYPE = "iam_role"
	VERSION       = "2012-10-17"

	LAMBDA_BASIC_EXECUTION_POLICY = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
)

var roleSanitizer = aws.IamRoleSanitizer
var policySanitizer = aws.IamPolicySanitizer

type (
	IamRole struct {
		Name                     string
		ConstructRefs            core.ConstructRefSet `cfn:"-"`
		RoleName                 string               `cfn:"RoleName"`
		Path                     string               `cfn:"Path"`
		AssumeRolePolicyDocument *PolicyDocument      `cfn:"AssumeRolePolicyDocument"`
		ManagedPolicyArns        []any                `cfn:"ManagedPolicyArns"`
		Policies                 []*IamInlinePolicy   `cfn:"Policies"`
	}

	IamInlinePolicy struct {
		PolicyName     string          `cfn:"PolicyName"`
		PolicyDocument *PolicyDocument `cfn:"PolicyDocument"`
	}

	PolicyDocument struct {
		Version   string           `cfn:"Version"`
		Statement []StatementEntry `cfn:"Statement"`
	}

	StatementEntry struct {
		Effect    string     `cfn:"Effect"`
		Principal *Principal `cfn:"Principal"`
		Action    []string   `cfn:"Action"`
		// Resource entries are strings or deploy-time values (core.IaCValue, core.Join).
		Resource []any `cfn:"Resource"`
	}

	Principal struct {
		Service []string `cfn:"Service"`
		AWS     any      `cfn:"AWS"`
	}
)

// AssumeRolePolicy returns the trust policy letting each service assume a role.
func AssumeRolePolicy(services ...string) *PolicyDocument {
	return &PolicyDocument{
		Version: VERSION,
		Statement: []StatementEntry{
			{
				Effect:    "Allow",
				Principal: &Principal{Service: services},
				Action:    []string{"sts:AssumeRole"},
			},
		},
	}
}

func CreateAllowPolicyDocument(actions []string, resources []any) *PolicyDocument {
	return &PolicyDocument{
		Version: VERSION,
		Statement: []StatementEntry{
			{
				Effect:   "Allow",
				Action:   actions,
				Resource: resources,
			},
		},
	}
}

type RoleCreateParams struct {
	// Name is the id of the role within its stack.
	Name string
	// RoleName is the physical name. Empty lets CloudFormation generate one.
	RoleName        string
	AssumedBy       []string
	Path            string
	ManagedPolicies []any
	InlinePolicies  []*IamInlinePolicy
	Refs            core.ConstructRefSet
}

func (role *IamRole) Create(rg *core.ResourceGraph, params RoleCreateParams) error {
	role.Name = params.Name
	if params.RoleName != "" {
		role.RoleName = roleSanitizer.Apply(params.RoleName)
	}
	role.ConstructRefs = params.Refs
	role.Path = params.Path
	role.AssumeRolePolicyDocument = AssumeRolePolicy(params.AssumedBy...)
	role.ManagedPolicyArns = params.ManagedPolicies
	role.Policies = params.InlinePolicies

	if existing := rg.GetResource(role.Id()); existing != nil {
		return fmt.Errorf("iam role with name %s already exists", role.Name)
	}
	rg.AddResource(role)
	return rg.AddDependenciesReflect(role)
}

// AddToPolicy appends statement to the inline policy named policyName, creating the policy if
// needed. Call [core.ResourceGraph.AddDependenciesReflect] again afterwards if statement references
// resources.
func (role *IamRole) AddToPolicy(policyName string, statement StatementEntry) {
	policyName = policySanitizer.Apply(policyName)
	for _, p := range role.Policies {
		if p.PolicyName == policyName {
			p.PolicyDocument.Statement = append(p.PolicyDocument.Statement, statement)
			return
		}
	}
	role.Policies = append(role.Policies, &IamInlinePolicy{
		PolicyName:     policyName,
		PolicyDocument: &PolicyDocument{Version: VERSION, Statement: []StatementEntry{statement}},
	})
}

func (role *IamRole) BaseConstructRefs() core.ConstructRefSet {
	return role.ConstructRefs
}

// Id returns the id of the cloud resource
func (role *IamRole) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IAM_ROLE_TYPE,
		Name:     role.Name,
	}
}

func (role *IamRole) CfnType() string {
	return "AWS::IAM::Role"
}

func (role *IamRole) Arn() core.IaCValue {
	return core.AttrOf(role, "Arn")
}
