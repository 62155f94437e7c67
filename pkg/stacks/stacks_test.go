package stacks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/infra/cfn"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fpath, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(fpath), 0o755))
	require.NoError(t, os.WriteFile(fpath, []byte(content), 0o644))
}

// testConfig is a complete app config whose component source and handler live under t.TempDir().
func testConfig(t *testing.T) config.AppConfig {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "component", "iotMatterCloudController.py"), "print('hi')\n")
	writeFile(t, filepath.Join(dir, "component", "requirements.txt"), "awsiotsdk\n")
	writeFile(t, filepath.Join(dir, "handler", "bootstrap"), "binary")

	return config.AppConfig{
		Project: config.Project{Name: "mcc", Stage: "dev", Account: "123456789012", Region: "us-east-1"},
		Stack: map[string]map[string]any{
			config.ThingInstallerSection: {
				"Name":           "ThingInstallerStack",
				"ThingGroupName": "mcc-dev-group",
			},
			config.ComponentUploadSection: {
				"Name":         "ComponentUploadStack",
				"BucketPrefix": "deployment",
				"Components": []any{
					map[string]any{"Name": "mcc-daemon", "Version": "1.0.3", "SourceDir": filepath.Join(dir, "component")},
				},
			},
			config.ComponentDeploymentSection: {
				"Name":        "ComponentDeploymentStack",
				"HandlerCode": filepath.Join(dir, "handler"),
				"Thing":       map[string]any{"Name": "mcc-daemon", "Version": "1.0.3", "Args": "--debug"},
				"PublicComponents": []any{
					map[string]any{"Name": "aws.greengrass.Nucleus", "Version": "2.9.0"},
					map[string]any{"Name": "aws.greengrass.ShadowManager", "Version": "2.3.0"},
				},
			},
			config.ThingMonitorSection: {
				"Name":       "ThingMonitorStack",
				"WebhookUrl": "https://hooks.example.com/shadow",
			},
			config.ApiGatewaySection: {
				"Name":               "ApiGatewayStack",
				"IotEndpointAddress": "ab123cdefghij4l-ats.iot.us-east-1.amazonaws.com",
			},
		},
	}
}

func compileStack(t *testing.T, app *stack.App, section string) (*stack.Stack, *cfn.Template) {
	t.Helper()
	compiled, err := app.Compile()
	require.NoError(t, err)
	for _, c := range compiled {
		if c.Stack.ConfigName == section {
			return c.Stack, c.Template
		}
	}
	t.Fatalf("no stack for %s", section)
	return nil, nil
}

func resourcesOfType(tmpl *cfn.Template, typ string) map[string]cfn.Resource {
	out := make(map[string]cfn.Resource)
	for id, r := range tmpl.Resources {
		if r.Type == typ {
			out[id] = r
		}
	}
	return out
}

func Test_NewApp(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	app, err := NewApp(testConfig(t))
	require.NoError(err)

	ordered, err := app.StackOrder()
	require.NoError(err)
	var names []string
	for _, s := range ordered {
		names = append(names, s.Name)
	}
	assert.Equal([]string{
		"mccdev-ApiGatewayStack",
		"mccdev-ComponentUploadStack",
		"mccdev-ThingInstallerStack",
		"mccdev-ComponentDeploymentStack",
		"mccdev-ThingMonitorStack",
	}, names)

	files, err := app.Synth()
	require.NoError(err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path())
	}
	assert.Contains(paths, "mccdev-ComponentDeploymentStack.assets.json")
	assert.Contains(paths, "mccdev-ComponentUploadStack.assets.json")
	assert.Contains(paths, "mccdev-ThingMonitorStack.template.json")
}

func Test_NewAppSkipsMissingSections(t *testing.T) {
	cfg := testConfig(t)
	delete(cfg.Stack, config.ComponentDeploymentSection)
	delete(cfg.Stack, config.ApiGatewaySection)

	app, err := NewApp(cfg)
	require.NoError(t, err)
	assert.Len(t, app.Stacks(), 3)
	assert.Nil(t, app.Stack(config.ApiGatewaySection))
}

func Test_NewAppValidates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stack[config.ThingMonitorSection]["WebhookUrl"] = "ftp://example.com"
	cfg.Stack[config.ComponentDeploymentSection]["Thing"] = map[string]any{"Name": "mcc-daemon", "Version": "one"}

	_, err := NewApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WebhookUrl")
	assert.Contains(t, err.Error(), "Thing.Version")
}

func Test_ThingInstallerStack(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	app, err := NewApp(testConfig(t))
	require.NoError(err)
	_, tmpl := compileStack(t, app, config.ThingInstallerSection)

	groups := resourcesOfType(tmpl, "AWS::IoT::ThingGroup")
	require.Len(groups, 1)
	for _, g := range groups {
		assert.Equal("mcc-dev-group", g.Properties["ThingGroupName"])
	}

	aliases := resourcesOfType(tmpl, "AWS::IoT::RoleAlias")
	require.Len(aliases, 1)
	for _, a := range aliases {
		assert.Equal("mccdevGreengrassCoreTokenExchangeRoleAlias", a.Properties["RoleAlias"])
	}

	policies := resourcesOfType(tmpl, "AWS::IoT::Policy")
	require.Len(policies, 1)
	for _, p := range policies {
		assert.Equal(config.DefaultIoTPolicyName, p.Properties["PolicyName"])
	}

	params := resourcesOfType(tmpl, "AWS::SSM::Parameter")
	var names []string
	for _, p := range params {
		names = append(names, p.Properties["Name"].(string))
	}
	assert.ElementsMatch([]string{
		"/mccdev/thing-group-name",
		"/mccdev/role-alias-name",
		"/mccdev/iot-policy-name",
	}, names)

	assert.Contains(tmpl.Outputs, "ThingGroupName")
	assert.Equal("mccdev-ThingInstallerStack-ThingGroupName", tmpl.Outputs["ThingGroupName"].Export.Name)
}

func Test_ComponentUploadStack(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	app, err := NewApp(testConfig(t))
	require.NoError(err)
	s, tmpl := compileStack(t, app, config.ComponentUploadSection)

	buckets := resourcesOfType(tmpl, "AWS::S3::Bucket")
	require.Len(buckets, 1)
	for _, b := range buckets {
		assert.Equal("Retain", b.DeletionPolicy)
		assert.Equal(map[string]any{"Status": "Enabled"}, b.Properties["VersioningConfiguration"])
	}

	require.Len(s.Assets, 1)
	asset := s.Assets[0]
	assert.Equal(stack.AfterDeploy, asset.Stage)
	assert.Equal("UploadBucketName", asset.Destination.BucketOutput)
	assert.Equal("deployment/mccdev-mcc-daemon/1.0.3/mccdev-mcc-daemon.zip", asset.Destination.Key)
	assert.Contains(tmpl.Outputs, asset.Destination.BucketOutput)
}

func Test_ComponentDeploymentStack(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	app, err := NewApp(testConfig(t))
	require.NoError(err)
	s, tmpl := compileStack(t, app, config.ComponentDeploymentSection)
	deployment := app.Stack(config.ComponentDeploymentSection)
	require.NotNil(deployment)

	comps := resourcesOfType(tmpl, "AWS::GreengrassV2::ComponentVersion")
	require.Len(comps, 1)

	custom := resourcesOfType(tmpl, ComponentDeploymentResourceType)
	require.Len(custom, 1)
	var props map[string]any
	for _, r := range custom {
		props = r.Properties
	}
	assert.Equal("mccdev", props[DeploymentNameProperty])
	assert.Contains(props, "ServiceToken")

	bucketParam := resources.NewSsmParameterValue(s.ProjectPrefix, UploadBucketNameParameter, nil)
	groupParam := resources.NewSsmParameterValue(s.ProjectPrefix, ThingGroupNameParameter, nil)
	groupId, err := cfn.CreateTemplatesCompiler(s.Graph).LogicalId(s.Graph.GetResource(groupParam.Id()))
	require.NoError(err)
	assert.Equal(map[string]any{"Fn::Join": []any{"", []any{
		"arn:aws:iot:",
		map[string]any{"Ref": "AWS::Region"},
		":",
		map[string]any{"Ref": "AWS::AccountId"},
		":thinggroup/",
		map[string]any{"Ref": groupId},
	}}}, props[TargetArnProperty])
	assert.NotNil(s.Graph.GetResource(bucketParam.Id()))

	// COMPONENTS is a JSON document holding the private component's registered version.
	components := props[ComponentsProperty].(map[string]any)["Fn::Join"].([]any)[1].([]any)
	var literal strings.Builder
	var refs []any
	for _, part := range components {
		if s, ok := part.(string); ok {
			literal.WriteString(s)
			continue
		}
		refs = append(refs, part)
	}
	assert.Contains(literal.String(), `"aws.greengrass.Nucleus":{"componentVersion":"2.9.0"}`)
	assert.Contains(literal.String(), `"mccdev-mcc-daemon":{"componentVersion":"`)
	assert.Contains(literal.String(), `"configurationUpdate":{"merge":"{\"accessControl\"`)
	require.Len(refs, 1)
	for id := range comps {
		assert.Equal(map[string]any{"Fn::GetAtt": []any{id, "ComponentVersion"}}, refs[0])
	}

	functions := resourcesOfType(tmpl, "AWS::Lambda::Function")
	require.Len(functions, 1)
	for _, f := range functions {
		assert.Equal(600, f.Properties["Timeout"])
		assert.Equal(resources.LAMBDA_GO_RUNTIME, f.Properties["Runtime"])
		assert.Equal("mccdev-ComponentDeploymentProviderLambdaFunction", f.Properties["FunctionName"])
	}
	require.Len(deployment.Assets, 1)
	assert.Equal(stack.BeforeDeploy, deployment.Assets[0].Stage)
	assert.Contains(tmpl.Parameters, stack.AssetsBucketParameter)
}

func Test_ComponentDeploymentStackRecipe(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)

	ordered, err := app.StackOrder()
	require.NoError(t, err)
	var deployed, upload, installer int
	for i, s := range ordered {
		switch s.ConfigName {
		case config.ComponentDeploymentSection:
			deployed = i
		case config.ComponentUploadSection:
			upload = i
		case config.ThingInstallerSection:
			installer = i
		}
	}
	assert.Greater(t, deployed, upload, "the artifact bucket exists before the recipe is registered")
	assert.Greater(t, deployed, installer, "the thing group exists before it is deployed to")
}

func Test_ThingMonitorStack(t *testing.T) {
	tests := []struct {
		name        string
		section     map[string]any
		wantSubs    []string
		permissions int
	}{
		{
			name:     "webhook",
			section:  map[string]any{"WebhookUrl": "https://hooks.example.com/shadow"},
			wantSubs: []string{"https", "https"},
		},
		{
			name:     "http webhook",
			section:  map[string]any{"WebhookUrl": "http://hooks.example.com/shadow"},
			wantSubs: []string{"http", "http"},
		},
		{
			name:        "lambda subscriber",
			section:     map[string]any{"SubscriberLambdaArn": "arn:aws:lambda:us-east-1:123456789012:function:shadow"},
			wantSubs:    []string{"lambda", "lambda"},
			permissions: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			cfg := config.AppConfig{
				Project: config.Project{Name: "mcc-iot", Stage: "dev"},
				Stack:   map[string]map[string]any{config.ThingMonitorSection: tt.section},
			}
			app, err := NewApp(cfg)
			require.NoError(err)
			_, tmpl := compileStack(t, app, config.ThingMonitorSection)

			rules := resourcesOfType(tmpl, "AWS::IoT::TopicRule")
			require.Len(rules, 2)
			sqlByName := make(map[string]string)
			for _, r := range rules {
				payload := r.Properties["TopicRulePayload"].(map[string]any)
				assert.Equal("2016-03-23", payload["AwsIotSqlVersion"])
				assert.Equal(false, payload["RuleDisabled"])
				sqlByName[r.Properties["RuleName"].(string)] = payload["Sql"].(string)
			}
			assert.Equal(map[string]string{
				"mcc_iotdev_thing_updated": "SELECT topic(3) as thing_name, topic(6) as shadow_name FROM '$aws/things/+/shadow/name/+/update/accepted'",
				"mcc_iotdev_thing_deleted": "SELECT topic(3) as thing_name, topic(6) as shadow_name FROM '$aws/things/+/shadow/name/+/deleted'",
			}, sqlByName)

			var protocols []string
			for _, sub := range resourcesOfType(tmpl, "AWS::SNS::Subscription") {
				protocols = append(protocols, sub.Properties["Protocol"].(string))
			}
			assert.Equal(tt.wantSubs, protocols)
			assert.Len(resourcesOfType(tmpl, "AWS::Lambda::Permission"), tt.permissions)
			assert.Len(resourcesOfType(tmpl, "AWS::SNS::Topic"), 2)
			assert.Len(resourcesOfType(tmpl, "AWS::IAM::Role"), 2)
		})
	}
}

func Test_ShadowEventSql(t *testing.T) {
	for _, event := range []string{"update/accepted", "deleted", "update/documents"} {
		sql := ShadowEventSql(event)
		assert.True(t, strings.HasPrefix(sql, "SELECT topic(3) as thing_name, topic(6) as shadow_name FROM "))
		assert.True(t, strings.HasSuffix(sql, "/shadow/name/+/"+event+"'"))
	}
}

func Test_MonitorRuleName(t *testing.T) {
	assert.Equal(t, "mccdev_thing_updated", MonitorRuleName("MccDev", "thing_updated"))
	assert.Equal(t, "mcc_iot_dev_thing_deleted", MonitorRuleName("mcc-iot-dev", "thing_deleted"))
}

func Test_ApiGatewayDeploymentStack(t *testing.T) {
	tests := []struct {
		name         string
		createApiKey any
		wantKey      bool
	}{
		{name: "api key by default", wantKey: true},
		{name: "api key disabled", createApiKey: false, wantKey: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			section := map[string]any{"IotEndpointAddress": "ab123cdefghij4l-ats"}
			if tt.createApiKey != nil {
				section["CreateApiKey"] = tt.createApiKey
			}
			app, err := NewApp(config.AppConfig{
				Project: config.Project{Name: "mcc", Stage: "dev"},
				Stack:   map[string]map[string]any{config.ApiGatewaySection: section},
			})
			require.NoError(err)
			_, tmpl := compileStack(t, app, config.ApiGatewaySection)

			assert.Len(resourcesOfType(tmpl, "AWS::ApiGateway::Method"), 11)
			assert.Contains(tmpl.Outputs, "ApiUrl")
			if tt.wantKey {
				assert.Len(resourcesOfType(tmpl, "AWS::ApiGateway::ApiKey"), 1)
				assert.Contains(tmpl.Outputs, "ApiKeyId")
			} else {
				assert.Empty(resourcesOfType(tmpl, "AWS::ApiGateway::ApiKey"))
				assert.NotContains(tmpl.Outputs, "ApiKeyId")
			}
		})
	}
}

func Test_ApiGatewayDeploymentStackErrors(t *testing.T) {
	app := stack.NewApp(config.AppConfig{Project: config.Project{Name: "mcc", Stage: "dev"}})
	_, err := NewApiGatewayDeploymentStack(app, &config.ApiGatewayConfig{
		Name:               "ApiGatewayStack",
		IotEndpointAddress: "ab123cdefghij4l-ats",
		ApiGatewayProps:    map[string]any{"endpointTypes": []any{"REGIONAL"}},
	})
	assert.Error(t, err)

	_, err = NewApiGatewayDeploymentStack(app, &config.ApiGatewayConfig{Name: "Other", IotEndpointAddress: " "})
	assert.Error(t, err)
}
