package deploy

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/infra/cfn"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testStackName = "mccdev-ComponentUpload"

func describeOutput(status cfntypes.StackStatus, outputs map[string]string) *cloudformation.DescribeStacksOutput {
	s := cfntypes.Stack{StackName: aws.String(testStackName), StackStatus: status}
	for k, v := range outputs {
		s.Outputs = append(s.Outputs, cfntypes.Output{OutputKey: aws.String(k), OutputValue: aws.String(v)})
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cfntypes.Stack{s}}
}

func newTestDeployer(cf *mockCloudFormation, s3c *mockS3) *Deployer {
	return &Deployer{
		Clients:     &Clients{Region: "ap-northeast-1", CloudFormation: cf, S3: s3c},
		Project:     config.Project{Name: "mcc", Stage: "dev"},
		Account:     "123456789012",
		waiterDelay: time.Millisecond,
	}
}

func testSynthesized(t *testing.T, assets ...*stack.Asset) stack.Synthesized {
	tmpl := &cfn.Template{
		AWSTemplateFormatVersion: cfn.FormatVersion,
		Parameters: map[string]cfn.Parameter{
			stack.AssetsBucketParameter: {Type: "String"},
		},
		Resources: map[string]cfn.Resource{
			"Bucket": {Type: "AWS::S3::Bucket"},
		},
	}
	return stack.Synthesized{
		Stack:    &stack.Stack{Name: testStackName, Description: "Greengrass component artifact bucket", Assets: assets},
		Template: tmpl,
	}
}

func Test_AssetBucket(t *testing.T) {
	d := newTestDeployer(nil, nil)
	assert.Equal(t, "mccdev-assets-123456789012-ap-northeast-1", d.AssetBucket())

	d.Project.Name, d.Project.Stage = "MCC_", "Dev"
	assert.Equal(t, "mcc-dev-assets-123456789012-ap-northeast-1", d.AssetBucket())

	d.Project.AssetBucket = "my-assets"
	assert.Equal(t, "my-assets", d.AssetBucket())
}

func Test_DeployStackCreate(t *testing.T) {
	assert := assert.New(t)
	code := testAsset(t, "handler", "assets/handler.zip")
	code.Stage = stack.BeforeDeploy
	artifact := testAsset(t, "comp", "comp/1.0.0/comp.zip")
	artifact.Stage = stack.AfterDeploy
	artifact.Destination.BucketOutput = "UploadBucketName"

	cf := &mockCloudFormation{}
	cf.On("DescribeStacks", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id " + testStackName + " does not exist"}).Once()
	cf.On("DescribeStacks", mock.Anything, mock.Anything).
		Return(describeOutput(cfntypes.StackStatusCreateComplete, map[string]string{"UploadBucketName": "upload-bucket"}), nil)
	var changeSet *cloudformation.CreateChangeSetInput
	cf.On("CreateChangeSet", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { changeSet = args.Get(1).(*cloudformation.CreateChangeSetInput) }).
		Return(&cloudformation.CreateChangeSetOutput{}, nil)
	cf.On("DescribeChangeSet", mock.Anything, mock.Anything).
		Return(&cloudformation.DescribeChangeSetOutput{Status: cfntypes.ChangeSetStatusCreateComplete}, nil)
	cf.On("ExecuteChangeSet", mock.Anything, mock.Anything).Return(&cloudformation.ExecuteChangeSetOutput{}, nil)

	s3c := &mockS3{}
	s3c.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)
	s3c.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "NotFound"})
	var uploads []*s3.PutObjectInput
	s3c.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { uploads = append(uploads, args.Get(1).(*s3.PutObjectInput)) }).
		Return(&s3.PutObjectOutput{}, nil)

	d := newTestDeployer(cf, s3c)
	result, err := d.DeployStack(context.Background(), testSynthesized(t, code, artifact))
	require.NoError(t, err)

	assert.Equal(string(cfntypes.StackStatusCreateComplete), result.Status)
	assert.Equal("upload-bucket", result.Outputs["UploadBucketName"])

	if assert.NotNil(changeSet) {
		assert.Equal(cfntypes.ChangeSetTypeCreate, changeSet.ChangeSetType)
		assert.Contains(aws.ToString(changeSet.ChangeSetName), changeSetPrefix)
		assert.Equal([]cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam}, changeSet.Capabilities)
		if assert.Len(changeSet.Parameters, 1) {
			assert.Equal(stack.AssetsBucketParameter, aws.ToString(changeSet.Parameters[0].ParameterKey))
			assert.Equal("mccdev-assets-123456789012-ap-northeast-1", aws.ToString(changeSet.Parameters[0].ParameterValue))
		}
	}

	// code before the change set, artifacts after the stack is up
	if assert.Len(uploads, 2) {
		assert.Equal("mccdev-assets-123456789012-ap-northeast-1", aws.ToString(uploads[0].Bucket))
		assert.Equal("assets/handler.zip", aws.ToString(uploads[0].Key))
		assert.Equal("upload-bucket", aws.ToString(uploads[1].Bucket))
		assert.Equal("comp/1.0.0/comp.zip", aws.ToString(uploads[1].Key))
	}
}

func Test_DeployStackNoChanges(t *testing.T) {
	assert := assert.New(t)
	cf := &mockCloudFormation{}
	cf.On("DescribeStacks", mock.Anything, mock.Anything).
		Return(describeOutput(cfntypes.StackStatusUpdateComplete, map[string]string{"UploadBucketName": "upload-bucket"}), nil)
	var changeSet *cloudformation.CreateChangeSetInput
	cf.On("CreateChangeSet", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { changeSet = args.Get(1).(*cloudformation.CreateChangeSetInput) }).
		Return(&cloudformation.CreateChangeSetOutput{}, nil)
	cf.On("DescribeChangeSet", mock.Anything, mock.Anything).Return(&cloudformation.DescribeChangeSetOutput{
		Status:       cfntypes.ChangeSetStatusFailed,
		StatusReason: aws.String("The submitted information didn't contain changes. Submit different information to create a change set."),
	}, nil)
	cf.On("DeleteChangeSet", mock.Anything, mock.Anything).Return(&cloudformation.DeleteChangeSetOutput{}, nil)

	d := newTestDeployer(cf, &mockS3{})
	result, err := d.DeployStack(context.Background(), testSynthesized(t))
	require.NoError(t, err)

	assert.Empty(result.Status)
	assert.Equal("upload-bucket", result.Outputs["UploadBucketName"])
	if assert.NotNil(changeSet) {
		assert.Equal(cfntypes.ChangeSetTypeUpdate, changeSet.ChangeSetType)
		assert.Empty(changeSet.Parameters)
	}
	cf.AssertCalled(t, "DeleteChangeSet", mock.Anything, mock.Anything)
	cf.AssertNotCalled(t, "ExecuteChangeSet", mock.Anything, mock.Anything)
}

func Test_DeployStackLargeTemplate(t *testing.T) {
	tests := []struct {
		name      string
		topics    int
		wantS3    bool
		wantStart string
	}{
		{name: "inline", topics: 1},
		{name: "from s3", topics: 1000, wantS3: true,
			wantStart: "https://mccdev-assets-123456789012-ap-northeast-1.s3.ap-northeast-1.amazonaws.com/templates/" + testStackName + "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			c := testSynthesized(t)
			for i := 0; i < tt.topics; i++ {
				c.Template.Resources[fmt.Sprintf("Topic%04d", i)] = cfn.Resource{
					Type:       "AWS::SNS::Topic",
					Properties: map[string]any{"TopicName": fmt.Sprintf("mccdev-thing-updated-%04d", i)},
				}
			}

			cf := &mockCloudFormation{}
			cf.On("DescribeStacks", mock.Anything, mock.Anything).
				Return(describeOutput(cfntypes.StackStatusUpdateComplete, nil), nil)
			var changeSet *cloudformation.CreateChangeSetInput
			cf.On("CreateChangeSet", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { changeSet = args.Get(1).(*cloudformation.CreateChangeSetInput) }).
				Return(&cloudformation.CreateChangeSetOutput{}, nil)
			cf.On("DescribeChangeSet", mock.Anything, mock.Anything).Return(&cloudformation.DescribeChangeSetOutput{
				Status:       cfntypes.ChangeSetStatusFailed,
				StatusReason: aws.String("The submitted information didn't contain changes."),
			}, nil)
			cf.On("DeleteChangeSet", mock.Anything, mock.Anything).Return(&cloudformation.DeleteChangeSetOutput{}, nil)

			s3c := &mockS3{}
			var put *s3.PutObjectInput
			s3c.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)
			s3c.On("PutObject", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { put = args.Get(1).(*s3.PutObjectInput) }).
				Return(&s3.PutObjectOutput{}, nil)

			_, err := newTestDeployer(cf, s3c).DeployStack(context.Background(), c)
			require.NoError(t, err)
			require.NotNil(t, changeSet)

			if !tt.wantS3 {
				assert.NotNil(changeSet.TemplateBody)
				assert.Nil(changeSet.TemplateURL)
				s3c.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
				return
			}
			assert.Nil(changeSet.TemplateBody)
			if assert.NotNil(changeSet.TemplateURL) {
				assert.True(strings.HasPrefix(*changeSet.TemplateURL, tt.wantStart), *changeSet.TemplateURL)
				assert.True(strings.HasSuffix(*changeSet.TemplateURL, ".json"))
			}
			if assert.NotNil(put) {
				assert.Equal("mccdev-assets-123456789012-ap-northeast-1", aws.ToString(put.Bucket))
				assert.True(strings.HasSuffix(*changeSet.TemplateURL, aws.ToString(put.Key)))
			}
		})
	}
}

func Test_DeployStackFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    cfntypes.StackStatus
		changeSet *cloudformation.DescribeChangeSetOutput
		wantErr   string
	}{
		{
			name:    "rolled back create",
			status:  cfntypes.StackStatusRollbackComplete,
			wantErr: "delete it before deploying again",
		},
		{
			name:    "busy",
			status:  cfntypes.StackStatusUpdateInProgress,
			wantErr: "stack is busy",
		},
		{
			name:   "change set failed",
			status: cfntypes.StackStatusCreateComplete,
			changeSet: &cloudformation.DescribeChangeSetOutput{
				Status:       cfntypes.ChangeSetStatusFailed,
				StatusReason: aws.String("Template format error"),
			},
			wantErr: "Template format error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf := &mockCloudFormation{}
			cf.On("DescribeStacks", mock.Anything, mock.Anything).Return(describeOutput(tt.status, nil), nil)
			cf.On("CreateChangeSet", mock.Anything, mock.Anything).Return(&cloudformation.CreateChangeSetOutput{}, nil)
			if tt.changeSet != nil {
				cf.On("DescribeChangeSet", mock.Anything, mock.Anything).Return(tt.changeSet, nil)
			}

			d := newTestDeployer(cf, &mockS3{})
			_, err := d.DeployStack(context.Background(), testSynthesized(t))
			assert.ErrorContains(t, err, tt.wantErr)
			cf.AssertNotCalled(t, "ExecuteChangeSet", mock.Anything, mock.Anything)
		})
	}
}

func Test_bindOutputBuckets(t *testing.T) {
	assert := assert.New(t)
	a := &stack.Asset{Id: "comp/1.0.0", Destination: stack.AssetDestination{BucketOutput: "UploadBucketName", Key: "k"}}

	uploads, err := bindOutputBuckets([]*stack.Asset{a}, map[string]string{"UploadBucketName": "b"})
	assert.NoError(err)
	assert.Equal([]Upload{{Asset: a, Bucket: "b"}}, uploads)

	_, err = bindOutputBuckets([]*stack.Asset{a}, map[string]string{})
	assert.ErrorContains(err, `no output "UploadBucketName"`)
}
