package resources

import (
	"testing"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/core/coretesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LambdaCreate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	dag := core.NewResourceGraph()
	refs := core.ConstructRefsOf("ComponentDeployment")

	role := &IamRole{}
	require.NoError(role.Create(dag, RoleCreateParams{Name: "ProviderRole", AssumedBy: []string{"lambda.amazonaws.com"}, Refs: refs}))
	bucket := &StackParameter{Name: "AssetsBucket"}

	fn := &LambdaFunction{}
	err := fn.Create(dag, LambdaCreateParams{
		Name:         "Provider",
		FunctionName: "mccdev-ProviderFunction",
		Role:         role,
		Code:         LambdaCode{S3Bucket: core.RefOf(bucket), S3Key: "assets/abc.zip"},
		Handler:      "bootstrap",
		Runtime:      LAMBDA_GO_RUNTIME,
		Timeout:      600,
		Refs:         refs,
	})
	require.NoError(err)

	coretesting.ResourcesExpectation{
		Nodes: []string{
			"aws:iam_role:ProviderRole",
			"aws:lambda_function:Provider",
			"aws:stack_parameter:AssetsBucket",
		},
		Deps: []coretesting.StringDep{
			{Source: "aws:lambda_function:Provider", Destination: "aws:iam_role:ProviderRole"},
			{Source: "aws:lambda_function:Provider", Destination: "aws:stack_parameter:AssetsBucket"},
		},
	}.Assert(t, dag)

	assert.Equal([]string{"arm64"}, fn.Architectures)
	assert.Equal(core.AttrOf(role, "Arn"), fn.RoleArn)
	assert.Equal("AWS::Lambda::Function", fn.CfnType())
}

func Test_NewLambdaInvokePermission(t *testing.T) {
	topic := NewSnsTopic("node_updated_topic", nil)
	perm := NewLambdaInvokePermission("node updated invoke", "arn:aws:lambda:us-east-1:123456789012:function:f", "sns.amazonaws.com", topic.Arn(), nil)

	assert := assert.New(t)
	assert.Equal("lambda:InvokeFunction", perm.Action)
	assert.Equal(topic.Arn(), perm.SourceArn)
	assert.NotContains(perm.Name, " ")
}
