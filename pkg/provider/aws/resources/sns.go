package resources

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const (
	SNS_TOPIC_TYPE        = "sns_topic"
	SNS_SUBSCRIPTION_TYPE = "sns_subscription"
)

type (
	SnsTopic struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		TopicName     string               `cfn:"TopicName"`
		DisplayName   string               `cfn:"DisplayName"`
	}

	SnsSubscription struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		Topic         *SnsTopic            `cfn:"TopicArn"`
		Protocol      string               `cfn:"Protocol"`
		Endpoint      any                  `cfn:"Endpoint"`
	}
)

func NewSnsTopic(name string, refs core.ConstructRefSet) *SnsTopic {
	return &SnsTopic{
		Name:          aws.SnsTopicSanitizer.Apply(name),
		ConstructRefs: refs,
	}
}

func (q *SnsTopic) BaseConstructRefs() core.ConstructRefSet {
	return q.ConstructRefs
}

// Id returns the id of the cloud resource
func (q *SnsTopic) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     SNS_TOPIC_TYPE,
		Name:     q.Name,
	}
}

func (q *SnsTopic) CfnType() string {
	return "AWS::SNS::Topic"
}

// Arn is the topic's ARN, which is also its `Ref` value.
func (q *SnsTopic) Arn() core.IaCValue {
	return core.RefOf(q)
}

func (q *SnsSubscription) BaseConstructRefs() core.ConstructRefSet {
	return q.ConstructRefs
}

// Id returns the id of the cloud resource
func (q *SnsSubscription) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     SNS_SUBSCRIPTION_TYPE,
		Name:     q.Name,
	}
}

func (q *SnsSubscription) CfnType() string {
	return "AWS::SNS::Subscription"
}
