package stacks

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
)

// ThingMonitorStack fans named shadow changes out through SNS: one topic rule per configured shadow
// event, publishing to that rule's topic.
type ThingMonitorStack struct {
	*stack.Stack
	Rules []*MonitorRule
}

type MonitorRule struct {
	Role          *resources.IamRole
	Topic         *resources.SnsTopic
	Subscriptions []*resources.SnsSubscription
	Rule          *resources.IotTopicRule
}

var snsPublishActions = []string{
	"sns:Publish",
	"sns:CreateTopic",
	"sns:AddSubscription",
	"sns:GetTopicAttributes",
	"sns:Subscribe",
}

// ShadowEventSql selects the thing and shadow names of every named shadow event of the given kind
// (eg "update/accepted").
func ShadowEventSql(event string) string {
	return fmt.Sprintf("SELECT topic(3) as thing_name, topic(6) as shadow_name FROM '$aws/things/+/shadow/name/+/%s'", event)
}

// MonitorRuleName is `<prefix>_<rule>`, lowercased prefix with every '-' replaced by '_'.
func MonitorRuleName(prefix, rule string) string {
	return strings.ReplaceAll(strings.ToLower(prefix), "-", "_") + "_" + rule
}

func NewThingMonitorStack(app *stack.App, cfg *config.ThingMonitorConfig) (*ThingMonitorStack, error) {
	s := &ThingMonitorStack{
		Stack: app.NewStack(config.ThingMonitorSection, cfg.Name, "Thing shadow change notifications"),
	}
	for _, r := range cfg.Rules {
		rule, err := s.createRule(cfg, r)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s", r.Name)
		}
		s.Rules = append(s.Rules, rule)
		if _, err := s.AddOutput(r.Name+"TopicArn", "Notifications for "+r.Topic+" shadow events", rule.Topic.Arn()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ThingMonitorStack) createRule(cfg *config.ThingMonitorConfig, r config.MonitorRule) (*MonitorRule, error) {
	refs := s.Refs(r.Name)
	rule := &MonitorRule{}

	rule.Topic = resources.NewSnsTopic(r.SnsTopic, refs)
	if err := s.Add(rule.Topic); err != nil {
		return nil, err
	}

	rule.Role = &resources.IamRole{}
	err := rule.Role.Create(s.Graph, resources.RoleCreateParams{
		Name:      r.Name + "Role",
		RoleName:  s.ProjectPrefix + "-" + r.Name + "Role",
		AssumedBy: []string{"iot.amazonaws.com"},
		Refs:      refs,
	})
	if err != nil {
		return nil, err
	}
	rule.Role.AddToPolicy(r.Name+"RolePolicy", resources.StatementEntry{
		Effect:   "Allow",
		Action:   snsPublishActions,
		Resource: []any{rule.Topic.Arn()},
	})
	if err := s.Add(rule.Role); err != nil {
		return nil, err
	}

	if cfg.WebhookUrl != "" {
		u, err := url.Parse(cfg.WebhookUrl)
		if err != nil {
			return nil, errors.Wrap(err, "invalid webhook url")
		}
		rule.Subscriptions = append(rule.Subscriptions, &resources.SnsSubscription{
			Name:          r.SnsTopic + "-webhook",
			ConstructRefs: refs,
			Topic:         rule.Topic,
			Protocol:      u.Scheme,
			Endpoint:      cfg.WebhookUrl,
		})
	}
	if cfg.SubscriberLambdaArn != "" {
		rule.Subscriptions = append(rule.Subscriptions, &resources.SnsSubscription{
			Name:          r.SnsTopic + "-lambda",
			ConstructRefs: refs,
			Topic:         rule.Topic,
			Protocol:      "lambda",
			Endpoint:      cfg.SubscriberLambdaArn,
		})
		permission := resources.NewLambdaInvokePermission(r.SnsTopic+"-invoke", cfg.SubscriberLambdaArn, "sns.amazonaws.com", rule.Topic.Arn(), refs)
		if err := s.Add(permission); err != nil {
			return nil, err
		}
	}
	for _, sub := range rule.Subscriptions {
		if err := s.Add(sub); err != nil {
			return nil, err
		}
	}

	rule.Rule = resources.NewIotTopicRule(MonitorRuleName(s.ProjectPrefix, r.Name), ShadowEventSql(r.Topic), refs,
		resources.TopicRuleAction{
			Sns: &resources.SnsAction{
				TargetArn: rule.Topic.Arn(),
				RoleArn:   rule.Role.Arn(),
			},
		})
	if err := s.Add(rule.Rule); err != nil {
		return nil, err
	}
	return rule, nil
}
