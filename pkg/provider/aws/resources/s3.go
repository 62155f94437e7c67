package resources

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const S3_BUCKET_TYPE = "s3_bucket"

type (
	S3Bucket struct {
		Name                           string
		ConstructRefs                  core.ConstructRefSet       `cfn:"-"`
		BucketName                     string                     `cfn:"BucketName"`
		VersioningConfiguration        *S3VersioningConfiguration `cfn:"VersioningConfiguration"`
		PublicAccessBlockConfiguration *S3PublicAccessBlock       `cfn:"PublicAccessBlockConfiguration"`
		BucketEncryption               *S3BucketEncryption        `cfn:"BucketEncryption"`
		DeletionPolicy                 string                     `cfn:"DeletionPolicy,attribute"`
	}

	S3VersioningConfiguration struct {
		Status string `cfn:"Status"`
	}

	S3PublicAccessBlock struct {
		BlockPublicAcls       bool `cfn:"BlockPublicAcls,always"`
		BlockPublicPolicy     bool `cfn:"BlockPublicPolicy,always"`
		IgnorePublicAcls      bool `cfn:"IgnorePublicAcls,always"`
		RestrictPublicBuckets bool `cfn:"RestrictPublicBuckets,always"`
	}

	S3BucketEncryption struct {
		ServerSideEncryptionConfiguration []S3EncryptionRule `cfn:"ServerSideEncryptionConfiguration"`
	}

	S3EncryptionRule struct {
		ServerSideEncryptionByDefault S3EncryptionByDefault `cfn:"ServerSideEncryptionByDefault"`
	}

	S3EncryptionByDefault struct {
		SSEAlgorithm string `cfn:"SSEAlgorithm"`
	}
)

// NewPrivateBucket is a versioned, S3-encrypted bucket with every form of public access blocked.
// It is retained when its stack is deleted.
func NewPrivateBucket(name string, refs core.ConstructRefSet) *S3Bucket {
	return &S3Bucket{
		Name:                    aws.S3BucketSanitizer.Apply(name),
		ConstructRefs:           refs,
		VersioningConfiguration: &S3VersioningConfiguration{Status: "Enabled"},
		PublicAccessBlockConfiguration: &S3PublicAccessBlock{
			BlockPublicAcls:       true,
			BlockPublicPolicy:     true,
			IgnorePublicAcls:      true,
			RestrictPublicBuckets: true,
		},
		BucketEncryption: &S3BucketEncryption{
			ServerSideEncryptionConfiguration: []S3EncryptionRule{
				{ServerSideEncryptionByDefault: S3EncryptionByDefault{SSEAlgorithm: "AES256"}},
			},
		},
		DeletionPolicy: "Retain",
	}
}

func (bucket *S3Bucket) BaseConstructRefs() core.ConstructRefSet {
	return bucket.ConstructRefs
}

// Id returns the id of the cloud resource
func (bucket *S3Bucket) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     S3_BUCKET_TYPE,
		Name:     bucket.Name,
	}
}

func (bucket *S3Bucket) CfnType() string {
	return "AWS::S3::Bucket"
}

// BucketNameRef is the generated (or configured) name, the bucket's `Ref` value.
func (bucket *S3Bucket) BucketNameRef() core.IaCValue {
	return core.RefOf(bucket)
}

func (bucket *S3Bucket) Arn() core.IaCValue {
	return core.AttrOf(bucket, "Arn")
}
