package config

import (
	"github.com/lithammer/dedent"
)

// Config section names under `Stack`.
const (
	ThingInstallerSection      = "ThingInstaller"
	ComponentUploadSection     = "ComponentUpload"
	ComponentDeploymentSection = "ComponentDeployment"
	ThingMonitorSection        = "ThingMonitor"
	ApiGatewaySection          = "ApiGateway"
)

type (
	ThingInstallerConfig struct {
		Name           string `mapstructure:"Name"`
		ThingGroupName string `mapstructure:"ThingGroupName"`
		RoleAliasName  string `mapstructure:"RoleAliasName"`
		IoTPolicyName  string `mapstructure:"IoTPolicyName"`
		// TokenExchangeActions are granted to the Greengrass token exchange role.
		TokenExchangeActions []string `mapstructure:"TokenExchangeActions"`
	}

	ComponentUploadConfig struct {
		Name         string            `mapstructure:"Name"`
		BucketPrefix string            `mapstructure:"BucketPrefix"`
		Components   []ComponentSource `mapstructure:"Components"`
	}

	ComponentSource struct {
		// Name is the unprefixed component name, matching ComponentDeployment.Thing.Name.
		Name      string `mapstructure:"Name"`
		Version   string `mapstructure:"Version"`
		SourceDir string `mapstructure:"SourceDir"`
		// Include globs (doublestar syntax, relative to SourceDir). Defaults to everything.
		Include []string `mapstructure:"Include"`
	}

	ComponentDeploymentConfig struct {
		Name             string                  `mapstructure:"Name"`
		Thing            ThingComponentConfig    `mapstructure:"Thing"`
		PublicComponents []PublicComponentConfig `mapstructure:"PublicComponents"`
		// HandlerCode is the directory holding the built gg-deploy-handler (a `bootstrap` binary).
		HandlerCode    string `mapstructure:"HandlerCode"`
		DeploymentName string `mapstructure:"DeploymentName"`
	}

	ThingComponentConfig struct {
		Name    string `mapstructure:"Name"`
		Version string `mapstructure:"Version"`
		Args    string `mapstructure:"Args"`

		Publisher  string `mapstructure:"Publisher"`
		EntryPoint string `mapstructure:"EntryPoint"`
		PythonEnv  string `mapstructure:"PythonEnv"`
		// InstallScript and RunScript are text/templates (with sprig functions) rendered into the
		// recipe lifecycle.
		InstallScript string            `mapstructure:"InstallScript"`
		RunScript     string            `mapstructure:"RunScript"`
		SleepTime     string            `mapstructure:"SleepTime"`
		Env           map[string]string `mapstructure:"Env"`
	}

	PublicComponentConfig struct {
		Name                string         `mapstructure:"Name"`
		Version             string         `mapstructure:"Version"`
		ConfigurationUpdate map[string]any `mapstructure:"ConfigurationUpdate"`
	}

	ThingMonitorConfig struct {
		Name       string `mapstructure:"Name"`
		WebhookUrl string `mapstructure:"WebhookUrl"`
		// SubscriberLambdaArn subscribes a Lambda function to every rule's topic instead of (or in
		// addition to) the webhook.
		SubscriberLambdaArn string        `mapstructure:"SubscriberLambdaArn"`
		Rules               []MonitorRule `mapstructure:"Rules"`
	}

	MonitorRule struct {
		Name string `mapstructure:"Name"`
		// Topic is the shadow event suffix, eg "update/accepted".
		Topic    string `mapstructure:"Topic"`
		SnsTopic string `mapstructure:"SnsTopic"`
	}

	ApiGatewayConfig struct {
		Name               string `mapstructure:"Name"`
		IotEndpointAddress string `mapstructure:"IotEndpointAddress"`
		CreateApiKey       *bool  `mapstructure:"CreateApiKey"`
		// ApiGatewayProps overrides the REST API defaults, in the shape of apigwiot.RestApiProps.
		ApiGatewayProps map[string]any `mapstructure:"ApiGatewayProps"`
	}
)

const (
	DefaultIoTPolicyName = "GreengrassV2IoTThingPolicy"
	DefaultPublisher     = "oide"
	DefaultPythonEnv     = "/home/ubuntu/connectedhomeip/out/python_env"
	DefaultEntryPoint    = "iotMatterCloudController.py"
	DefaultSleepTime     = "22"
	DefaultHandlerCode   = "out/gg-deploy-handler"
)

var (
	DefaultTokenExchangeActions = []string{
		"iot:DescribeCertificate",
		"logs:CreateLogGroup",
		"logs:CreateLogStream",
		"logs:PutLogEvents",
		"logs:DescribeLogStreams",
		"iot:Connect",
		"iot:Publish",
		"iot:Subscribe",
		"iot:Receive",
		"s3:GetBucketLocation",
		"s3:GetObject",
	}

	DefaultMonitorRules = []MonitorRule{
		{Name: "thing_updated", Topic: "update/accepted", SnsTopic: "node_updated_topic"},
		{Name: "thing_deleted", Topic: "deleted", SnsTopic: "node_deleted_topic"},
	}

	DefaultInstallScript = dedent.Dedent(`
		. {{ .PythonEnv }}/bin/activate
		pip3 install -r {artifacts:decompressedPath}/{{ .ComponentName }}/requirements.txt`)[1:]

	DefaultRunScript = dedent.Dedent(`
		. {{ .PythonEnv }}/bin/activate
		python3 {artifacts:decompressedPath}/{{ .ComponentName }}/{{ .EntryPoint }}{{ with .Args }} {{ . }}{{ end }}
		`)[1:]
)

func (a AppConfig) ThingInstaller() (*ThingInstallerConfig, error) {
	cfg := &ThingInstallerConfig{}
	if ok, err := a.DecodeStack(ThingInstallerSection, cfg); !ok || err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = ThingInstallerSection
	}
	if cfg.RoleAliasName == "" {
		cfg.RoleAliasName = a.ProjectPrefix() + "GreengrassCoreTokenExchangeRoleAlias"
	}
	if cfg.IoTPolicyName == "" {
		cfg.IoTPolicyName = DefaultIoTPolicyName
	}
	if len(cfg.TokenExchangeActions) == 0 {
		cfg.TokenExchangeActions = DefaultTokenExchangeActions
	}
	return cfg, nil
}

func (a AppConfig) ComponentUpload() (*ComponentUploadConfig, error) {
	cfg := &ComponentUploadConfig{}
	if ok, err := a.DecodeStack(ComponentUploadSection, cfg); !ok || err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = ComponentUploadSection
	}
	for i := range cfg.Components {
		if cfg.Components[i].SourceDir == "" {
			cfg.Components[i].SourceDir = "src/component/" + cfg.Components[i].Name
		}
		if len(cfg.Components[i].Include) == 0 {
			cfg.Components[i].Include = []string{"**"}
		}
	}
	return cfg, nil
}

func (a AppConfig) ComponentDeployment() (*ComponentDeploymentConfig, error) {
	cfg := &ComponentDeploymentConfig{}
	if ok, err := a.DecodeStack(ComponentDeploymentSection, cfg); !ok || err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = ComponentDeploymentSection
	}
	if cfg.HandlerCode == "" {
		cfg.HandlerCode = DefaultHandlerCode
	}
	if cfg.DeploymentName == "" {
		cfg.DeploymentName = a.ProjectPrefix()
	}
	thing := &cfg.Thing
	if thing.Publisher == "" {
		thing.Publisher = DefaultPublisher
	}
	if thing.EntryPoint == "" {
		thing.EntryPoint = DefaultEntryPoint
	}
	if thing.PythonEnv == "" {
		thing.PythonEnv = DefaultPythonEnv
	}
	if thing.InstallScript == "" {
		thing.InstallScript = DefaultInstallScript
	}
	if thing.RunScript == "" {
		thing.RunScript = DefaultRunScript
	}
	if thing.SleepTime == "" {
		thing.SleepTime = DefaultSleepTime
	}
	return cfg, nil
}

func (a AppConfig) ThingMonitor() (*ThingMonitorConfig, error) {
	cfg := &ThingMonitorConfig{}
	if ok, err := a.DecodeStack(ThingMonitorSection, cfg); !ok || err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = ThingMonitorSection
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultMonitorRules
	}
	return cfg, nil
}

func (a AppConfig) ApiGateway() (*ApiGatewayConfig, error) {
	cfg := &ApiGatewayConfig{}
	if ok, err := a.DecodeStack(ApiGatewaySection, cfg); !ok || err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = ApiGatewaySection
	}
	if cfg.CreateApiKey == nil {
		createKey := true
		cfg.CreateApiKey = &createKey
	}
	return cfg, nil
}
