package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ReadConfig(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantFormat string
		wantPrefix string
		wantStacks []string
	}{
		{
			name:       "json",
			path:       "testdata/app-config.json",
			wantFormat: "json",
			wantPrefix: "mccdev",
			wantStacks: []string{ThingInstallerSection, ComponentUploadSection, ComponentDeploymentSection, ThingMonitorSection, ApiGatewaySection},
		},
		{
			name:       "yaml",
			path:       "testdata/app-config.yaml",
			wantFormat: "yaml",
			wantPrefix: "mccdev",
			wantStacks: []string{ThingMonitorSection},
		},
		{
			name:       "toml",
			path:       "testdata/app-config.toml",
			wantFormat: "toml",
			wantPrefix: "mccprod",
			wantStacks: []string{ApiGatewaySection},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg, err := ReadConfig(tt.path)
			require.NoError(t, err)
			assert.Equal(tt.wantFormat, cfg.Format)
			assert.Equal(tt.wantPrefix, cfg.ProjectPrefix())
			for _, s := range tt.wantStacks {
				assert.True(cfg.HasStack(s), s)
			}
			assert.Len(cfg.Stack, len(tt.wantStacks))
			assert.NoError(cfg.Validate())
		})
	}
}

func Test_ReadConfig_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app-config.ini")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := ReadConfig(path)
	assert.Error(t, err)
}

func Test_StackSections(t *testing.T) {
	assert := assert.New(t)
	cfg, err := ReadConfig("testdata/app-config.json")
	require.NoError(t, err)

	ti, err := cfg.ThingInstaller()
	require.NoError(t, err)
	assert.Equal("mcc-thing-group", ti.ThingGroupName)
	assert.Equal("mccdevGreengrassCoreTokenExchangeRoleAlias", ti.RoleAliasName)
	assert.Equal(DefaultIoTPolicyName, ti.IoTPolicyName)
	assert.Equal(DefaultTokenExchangeActions, ti.TokenExchangeActions)

	cu, err := cfg.ComponentUpload()
	require.NoError(t, err)
	assert.Equal("gg-comp", cu.BucketPrefix)
	assert.Equal([]ComponentSource{{Name: "mcc-daemon", Version: "1.0.0", SourceDir: "src/component/mcc-daemon", Include: []string{"**"}}}, cu.Components)

	cd, err := cfg.ComponentDeployment()
	require.NoError(t, err)
	assert.Equal("ComponentDeploymentStack", cd.Name)
	assert.Equal("mccdev", cd.DeploymentName)
	assert.Equal("--mode cloud", cd.Thing.Args)
	assert.Equal(DefaultPublisher, cd.Thing.Publisher)
	assert.Equal("22", cd.Thing.SleepTime)
	if assert.Len(cd.PublicComponents, 2) {
		assert.Equal("aws.greengrass.ShadowManager", cd.PublicComponents[1].Name)
		assert.Contains(cd.PublicComponents[1].ConfigurationUpdate, "merge")
	}

	tm, err := cfg.ThingMonitor()
	require.NoError(t, err)
	assert.Equal(DefaultMonitorRules, tm.Rules)

	ag, err := cfg.ApiGateway()
	require.NoError(t, err)
	if assert.NotNil(ag.CreateApiKey) {
		assert.True(*ag.CreateApiKey)
	}
}

func Test_MissingSectionDisablesStack(t *testing.T) {
	cfg, err := ReadConfig("testdata/app-config.toml")
	require.NoError(t, err)
	ti, err := cfg.ThingInstaller()
	assert.NoError(t, err)
	assert.Nil(t, ti)

	ag, err := cfg.ApiGateway()
	require.NoError(t, err)
	assert.Equal(t, ApiGatewaySection, ag.Name)
	if assert.NotNil(t, ag.CreateApiKey) {
		assert.False(t, *ag.CreateApiKey)
	}
}

func Test_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AppConfig
		wantErr []string
	}{
		{
			name:    "missing project",
			cfg:     AppConfig{},
			wantErr: []string{"Project.Name is required", "Project.Stage is required"},
		},
		{
			name:    "bad account",
			cfg:     AppConfig{Project: Project{Name: "a", Stage: "b", Account: "12"}},
			wantErr: []string{"12 digit"},
		},
		{
			name: "bad component",
			cfg: AppConfig{
				Project: Project{Name: "a", Stage: "b"},
				Stack: map[string]map[string]any{
					ComponentDeploymentSection: {
						"Thing": map[string]any{"Name": "x", "Version": "one", "Args": `"unterminated`},
					},
				},
			},
			wantErr: []string{"not a semantic version", "not valid shell words", "requires Stack.ThingInstaller", "requires Stack.ComponentUpload"},
		},
		{
			name: "monitor without subscriber",
			cfg: AppConfig{
				Project: Project{Name: "a", Stage: "b"},
				Stack:   map[string]map[string]any{ThingMonitorSection: {"WebhookUrl": "ftp://x"}},
			},
			wantErr: []string{"must use http or https"},
		},
		{
			name: "monitor needs a target",
			cfg: AppConfig{
				Project: Project{Name: "a", Stage: "b"},
				Stack:   map[string]map[string]any{ThingMonitorSection: {}},
			},
			wantErr: []string{"needs a WebhookUrl or a SubscriberLambdaArn"},
		},
		{
			name: "api gateway endpoint",
			cfg: AppConfig{
				Project: Project{Name: "a", Stage: "b"},
				Stack:   map[string]map[string]any{ApiGatewaySection: {"IotEndpointAddress": "  "}},
			},
			wantErr: []string{"IotEndpointAddress is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func Test_PathFromEnv(t *testing.T) {
	t.Setenv(AppConfigEnvName, "config/app-config.json")
	assert.Equal(t, "config/app-config.json", PathFromEnv(""))
	assert.Equal(t, "other.yaml", PathFromEnv("other.yaml"))
}
