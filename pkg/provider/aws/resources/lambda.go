package resources

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const (
	LAMBDA_FUNCTION_TYPE   = "lambda_function"
	LAMBDA_PERMISSION_TYPE = "lambda_permission"

	// Go handlers ship as a `bootstrap` binary on the OS-only runtime.
	LAMBDA_GO_RUNTIME = "provided.al2"
)

var lambdaFunctionSanitizer = aws.LambdaFunctionSanitizer
var lambdaPermissionSanitizer = aws.LambdaPermissionSanitizer

type (
	LambdaFunction struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		FunctionName  string               `cfn:"FunctionName"`
		Description   string               `cfn:"Description"`
		Role          *IamRole             `cfn:"-"`
		RoleArn       core.IaCValue        `cfn:"Role"`
		Code          LambdaCode           `cfn:"Code"`
		Handler       string               `cfn:"Handler"`
		Runtime       string               `cfn:"Runtime"`
		Architectures []string             `cfn:"Architectures"`
		Timeout       int                  `cfn:"Timeout"`
		MemorySize    int                  `cfn:"MemorySize"`
		Environment   *LambdaEnvironment   `cfn:"Environment"`
	}

	LambdaCode struct {
		S3Bucket any `cfn:"S3Bucket"`
		S3Key    any `cfn:"S3Key"`
	}

	LambdaEnvironment struct {
		Variables map[string]any `cfn:"Variables"`
	}

	LambdaPermission struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		Action        string               `cfn:"Action"`
		FunctionName  any                  `cfn:"FunctionName"`
		Principal     string               `cfn:"Principal"`
		SourceArn     any                  `cfn:"SourceArn"`
	}
)

type LambdaCreateParams struct {
	Name         string
	FunctionName string
	Role         *IamRole
	Code         LambdaCode
	Handler      string
	Runtime      string
	Timeout      int
	Refs         core.ConstructRefSet
}

func (lambda *LambdaFunction) Create(rg *core.ResourceGraph, params LambdaCreateParams) error {
	lambda.Name = params.Name
	lambda.ConstructRefs = params.Refs
	lambda.FunctionName = lambdaFunctionSanitizer.Apply(params.FunctionName)
	lambda.Role = params.Role
	lambda.RoleArn = params.Role.Arn()
	lambda.Code = params.Code
	lambda.Handler = params.Handler
	lambda.Runtime = params.Runtime
	lambda.Timeout = params.Timeout
	if lambda.Runtime == LAMBDA_GO_RUNTIME {
		lambda.Architectures = []string{"arm64"}
	}
	return rg.AddDependenciesReflect(lambda)
}

func (lambda *LambdaFunction) BaseConstructRefs() core.ConstructRefSet {
	return lambda.ConstructRefs
}

// Id returns the id of the cloud resource
func (lambda *LambdaFunction) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     LAMBDA_FUNCTION_TYPE,
		Name:     lambda.Name,
	}
}

func (lambda *LambdaFunction) CfnType() string {
	return "AWS::Lambda::Function"
}

func (lambda *LambdaFunction) Arn() core.IaCValue {
	return core.AttrOf(lambda, "Arn")
}

// NewLambdaInvokePermission allows principal to invoke function (an ARN or a reference), scoped to
// sourceArn.
func NewLambdaInvokePermission(name string, function any, principal string, sourceArn any, refs core.ConstructRefSet) *LambdaPermission {
	return &LambdaPermission{
		Name:          lambdaPermissionSanitizer.Apply(name),
		ConstructRefs: refs,
		Action:        "lambda:InvokeFunction",
		FunctionName:  function,
		Principal:     principal,
		SourceArn:     sourceArn,
	}
}

func (permission *LambdaPermission) BaseConstructRefs() core.ConstructRefSet {
	return permission.ConstructRefs
}

// Id returns the id of the cloud resource
func (permission *LambdaPermission) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     LAMBDA_PERMISSION_TYPE,
		Name:     permission.Name,
	}
}

func (permission *LambdaPermission) CfnType() string {
	return "AWS::Lambda::Permission"
}
