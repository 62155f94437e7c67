package resources

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const (
	IOT_TOPIC_RULE_TYPE  = "iot_topic_rule"
	IOT_THING_GROUP_TYPE = "iot_thing_group"
	IOT_POLICY_TYPE      = "iot_policy"
	IOT_ROLE_ALIAS_TYPE  = "iot_role_alias"

	IOT_SQL_VERSION = "2016-03-23"
)

type (
	IotTopicRule struct {
		Name             string
		ConstructRefs    core.ConstructRefSet `cfn:"-"`
		RuleName         string               `cfn:"RuleName"`
		TopicRulePayload TopicRulePayload     `cfn:"TopicRulePayload"`
	}

	TopicRulePayload struct {
		RuleDisabled     bool              `cfn:"RuleDisabled,always"`
		Sql              string            `cfn:"Sql"`
		AwsIotSqlVersion string            `cfn:"AwsIotSqlVersion"`
		Actions          []TopicRuleAction `cfn:"Actions"`
	}

	TopicRuleAction struct {
		Sns    *SnsAction    `cfn:"Sns"`
		Lambda *LambdaAction `cfn:"Lambda"`
	}

	SnsAction struct {
		TargetArn     any    `cfn:"TargetArn"`
		RoleArn       any    `cfn:"RoleArn"`
		MessageFormat string `cfn:"MessageFormat"`
	}

	LambdaAction struct {
		FunctionArn any `cfn:"FunctionArn"`
	}

	IotThingGroup struct {
		Name           string
		ConstructRefs  core.ConstructRefSet `cfn:"-"`
		ThingGroupName string               `cfn:"ThingGroupName"`
	}

	IotPolicy struct {
		Name           string
		ConstructRefs  core.ConstructRefSet `cfn:"-"`
		PolicyName     string               `cfn:"PolicyName"`
		PolicyDocument *PolicyDocument      `cfn:"PolicyDocument"`
	}

	IotRoleAlias struct {
		Name                      string
		ConstructRefs             core.ConstructRefSet `cfn:"-"`
		RoleAlias                 string               `cfn:"RoleAlias"`
		RoleArn                   core.IaCValue        `cfn:"RoleArn"`
		CredentialDurationSeconds int                  `cfn:"CredentialDurationSeconds"`
	}
)

// NewIotTopicRule builds an enabled rule running sql with the given actions. The rule name is
// sanitized to the characters IoT allows.
func NewIotTopicRule(ruleName, sql string, refs core.ConstructRefSet, actions ...TopicRuleAction) *IotTopicRule {
	ruleName = aws.IotRuleSanitizer.Apply(ruleName)
	return &IotTopicRule{
		Name:          ruleName,
		ConstructRefs: refs,
		RuleName:      ruleName,
		TopicRulePayload: TopicRulePayload{
			RuleDisabled:     false,
			Sql:              sql,
			AwsIotSqlVersion: IOT_SQL_VERSION,
			Actions:          actions,
		},
	}
}

func (rule *IotTopicRule) BaseConstructRefs() core.ConstructRefSet {
	return rule.ConstructRefs
}

// Id returns the id of the cloud resource
func (rule *IotTopicRule) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IOT_TOPIC_RULE_TYPE,
		Name:     rule.Name,
	}
}

func (rule *IotTopicRule) CfnType() string {
	return "AWS::IoT::TopicRule"
}

func (rule *IotTopicRule) Arn() core.IaCValue {
	return core.AttrOf(rule, "Arn")
}

func (group *IotThingGroup) BaseConstructRefs() core.ConstructRefSet {
	return group.ConstructRefs
}

// Id returns the id of the cloud resource
func (group *IotThingGroup) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IOT_THING_GROUP_TYPE,
		Name:     group.Name,
	}
}

func (group *IotThingGroup) CfnType() string {
	return "AWS::IoT::ThingGroup"
}

func (group *IotThingGroup) Arn() core.IaCValue {
	return core.AttrOf(group, "Arn")
}

func NewIotThingGroup(name string, refs core.ConstructRefSet) *IotThingGroup {
	name = aws.IotNameSanitizer.Apply(name)
	return &IotThingGroup{Name: name, ConstructRefs: refs, ThingGroupName: name}
}

func (policy *IotPolicy) BaseConstructRefs() core.ConstructRefSet {
	return policy.ConstructRefs
}

// Id returns the id of the cloud resource
func (policy *IotPolicy) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IOT_POLICY_TYPE,
		Name:     policy.Name,
	}
}

func (policy *IotPolicy) CfnType() string {
	return "AWS::IoT::Policy"
}

func NewIotPolicy(name string, doc *PolicyDocument, refs core.ConstructRefSet) *IotPolicy {
	name = aws.IotNameSanitizer.Apply(name)
	return &IotPolicy{Name: name, ConstructRefs: refs, PolicyName: name, PolicyDocument: doc}
}

func (alias *IotRoleAlias) BaseConstructRefs() core.ConstructRefSet {
	return alias.ConstructRefs
}

// Id returns the id of the cloud resource
func (alias *IotRoleAlias) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     IOT_ROLE_ALIAS_TYPE,
		Name:     alias.Name,
	}
}

func (alias *IotRoleAlias) CfnType() string {
	return "AWS::IoT::RoleAlias"
}

func (alias *IotRoleAlias) Arn() core.IaCValue {
	return core.AttrOf(alias, "RoleAliasArn")
}

func NewIotRoleAlias(name string, role *IamRole, refs core.ConstructRefSet) *IotRoleAlias {
	name = aws.IotNameSanitizer.Apply(name)
	return &IotRoleAlias{
		Name:                      name,
		ConstructRefs:             refs,
		RoleAlias:                 name,
		RoleArn:                   role.Arn(),
		CredentialDurationSeconds: 3600,
	}
}
