package deploy

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/pkg/errors"
)

type (
	// CloudFormationAPI is the part of the CloudFormation client deploy and diff use. It satisfies
	// the SDK waiters' DescribeStacks and DescribeChangeSet clients.
	CloudFormationAPI interface {
		DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
		GetTemplate(ctx context.Context, in *cloudformation.GetTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
		CreateChangeSet(ctx context.Context, in *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error)
		DescribeChangeSet(ctx context.Context, in *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)
		ExecuteChangeSet(ctx context.Context, in *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error)
		DeleteChangeSet(ctx context.Context, in *cloudformation.DeleteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error)
	}

	S3API interface {
		HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
		CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
		HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
		PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	STSAPI interface {
		GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
	}

	IotAPI interface {
		GetPolicy(ctx context.Context, in *iot.GetPolicyInput, optFns ...func(*iot.Options)) (*iot.GetPolicyOutput, error)
		ListPolicyVersions(ctx context.Context, in *iot.ListPolicyVersionsInput, optFns ...func(*iot.Options)) (*iot.ListPolicyVersionsOutput, error)
		CreatePolicyVersion(ctx context.Context, in *iot.CreatePolicyVersionInput, optFns ...func(*iot.Options)) (*iot.CreatePolicyVersionOutput, error)
		SetDefaultPolicyVersion(ctx context.Context, in *iot.SetDefaultPolicyVersionInput, optFns ...func(*iot.Options)) (*iot.SetDefaultPolicyVersionOutput, error)
		DeletePolicyVersion(ctx context.Context, in *iot.DeletePolicyVersionInput, optFns ...func(*iot.Options)) (*iot.DeletePolicyVersionOutput, error)
	}

	// Clients are the AWS clients for one account and region.
	Clients struct {
		Region         string
		CloudFormation CloudFormationAPI
		S3             S3API
		STS            STSAPI
		Iot            IotAPI
	}
)

// NewClients loads the default credential chain with the project's profile and region applied.
func NewClients(ctx context.Context, project config.Project) (*Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if project.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(project.Profile))
	}
	if project.Region != "" {
		opts = append(opts, awsconfig.WithRegion(project.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "could not load AWS config")
	}
	if cfg.Region == "" {
		return nil, errors.New("no AWS region: set Project.Region or AWS_REGION")
	}
	return &Clients{
		Region:         cfg.Region,
		CloudFormation: cloudformation.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
		Iot:            iot.NewFromConfig(cfg),
	}, nil
}

// ResolveAccount returns the account of the caller's credentials, which must match
// Project.Account when that is set.
func (c *Clients) ResolveAccount(ctx context.Context, project config.Project) (string, error) {
	out, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", errors.Wrap(err, "could not get caller identity")
	}
	account := aws.ToString(out.Account)
	if project.Account != "" && project.Account != account {
		return "", errors.Errorf("credentials are for account %s but the project is configured for %s", account, project.Account)
	}
	return account, nil
}

// isStackMissing reports whether err is CloudFormation's answer for a stack that does not exist.
func isStackMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

// isNotFound reports whether err is a 404 style error from S3 or IoT.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchBucket", "NoSuchKey", "ResourceNotFoundException":
		return true
	}
	return false
}
