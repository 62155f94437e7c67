package deploy

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/mock"
)

type mockCloudFormation struct{ mock.Mock }

func (m *mockCloudFormation) DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.DescribeStacksOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) GetTemplate(ctx context.Context, in *cloudformation.GetTemplateInput, _ ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.GetTemplateOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) CreateChangeSet(ctx context.Context, in *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.CreateChangeSetOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) DescribeChangeSet(ctx context.Context, in *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.DescribeChangeSetOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) ExecuteChangeSet(ctx context.Context, in *cloudformation.ExecuteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.ExecuteChangeSetOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) DeleteChangeSet(ctx context.Context, in *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.DeleteChangeSetOutput)
	return out, args.Error(1)
}

type mockS3 struct{ mock.Mock }

func (m *mockS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadBucketOutput)
	return out, args.Error(1)
}

func (m *mockS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateBucketOutput)
	return out, args.Error(1)
}

func (m *mockS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

type mockSTS struct{ mock.Mock }

func (m *mockSTS) GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sts.GetCallerIdentityOutput)
	return out, args.Error(1)
}

type mockIot struct{ mock.Mock }

func (m *mockIot) GetPolicy(ctx context.Context, in *iot.GetPolicyInput, _ ...func(*iot.Options)) (*iot.GetPolicyOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iot.GetPolicyOutput)
	return out, args.Error(1)
}

func (m *mockIot) ListPolicyVersions(ctx context.Context, in *iot.ListPolicyVersionsInput, _ ...func(*iot.Options)) (*iot.ListPolicyVersionsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iot.ListPolicyVersionsOutput)
	return out, args.Error(1)
}

func (m *mockIot) CreatePolicyVersion(ctx context.Context, in *iot.CreatePolicyVersionInput, _ ...func(*iot.Options)) (*iot.CreatePolicyVersionOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iot.CreatePolicyVersionOutput)
	return out, args.Error(1)
}

func (m *mockIot) SetDefaultPolicyVersion(ctx context.Context, in *iot.SetDefaultPolicyVersionInput, _ ...func(*iot.Options)) (*iot.SetDefaultPolicyVersionOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iot.SetDefaultPolicyVersionOutput)
	return out, args.Error(1)
}

func (m *mockIot) DeletePolicyVersion(ctx context.Context, in *iot.DeletePolicyVersionInput, _ ...func(*iot.Options)) (*iot.DeletePolicyVersionOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iot.DeletePolicyVersionOutput)
	return out, args.Error(1)
}
