package stack

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/infra/cfn"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(format string) *App {
	return NewApp(config.AppConfig{
		Project: config.Project{Name: "mcc", Stage: "dev"},
		Format:  format,
	})
}

func Test_StackParameters(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	app := testApp("json")
	producer := app.NewStack("ComponentUpload", "ComponentUploadStack", "")
	consumer := app.NewStack("ComponentDeployment", "ComponentDeploymentStack", "")
	assert.Equal("mccdev-ComponentUploadStack", producer.Name)

	bucket := resources.NewPrivateBucket("upload", producer.Refs())
	param, err := producer.PutParameter("gg-comp-upload-bucket-name", bucket.BucketNameRef())
	require.NoError(err)
	assert.Equal("/mccdev/gg-comp-upload-bucket-name", param.ParameterName)
	assert.NotNil(producer.Graph.GetResource(bucket.Id()), "the parameter's value is added with it")

	_, err = producer.PutParameter("gg-comp-upload-bucket-name", "again")
	assert.Error(err)

	v1 := consumer.GetParameter("gg-comp-upload-bucket-name")
	v2 := consumer.GetParameter("gg-comp-upload-bucket-name")
	assert.Equal(v1, v2)
	assert.Len(consumer.Graph.ListResources(), 1)

	compiled, err := app.Compile()
	require.NoError(err)
	require.Len(compiled, 2)
	assert.Equal(producer, compiled[0].Stack)
	assert.Equal(consumer, compiled[1].Stack)

	params := compiled[1].Template.Parameters
	require.Len(params, 1)
	for _, p := range params {
		assert.Equal(cfn.Parameter{
			Type:        "AWS::SSM::Parameter::Value<String>",
			Default:     "/mccdev/gg-comp-upload-bucket-name",
			Description: "SSM parameter /mccdev/gg-comp-upload-bucket-name",
		}, p)
	}
}

func Test_StackOrder(t *testing.T) {
	tests := []struct {
		name    string
		build   func(app *App)
		want    []string
		wantErr string
	}{
		{
			name: "independent stacks by name",
			build: func(app *App) {
				app.NewStack("ThingMonitor", "ThingMonitorStack", "")
				app.NewStack("ApiGateway", "ApiGatewayStack", "")
			},
			want: []string{"ApiGateway", "ThingMonitor"},
		},
		{
			name: "consumers after producers",
			build: func(app *App) {
				deploy := app.NewStack("ComponentDeployment", "d", "")
				deploy.GetParameter("thing-group-name")
				deploy.GetParameter("gg-comp-upload-bucket-name")
				upload := app.NewStack("ComponentUpload", "u", "")
				_, _ = upload.PutParameter("gg-comp-upload-bucket-name", "b")
				installer := app.NewStack("ThingInstaller", "i", "")
				_, _ = installer.PutParameter("thing-group-name", "g")
			},
			want: []string{"ComponentUpload", "ThingInstaller", "ComponentDeployment"},
		},
		{
			name: "explicit dependency",
			build: func(app *App) {
				app.NewStack("A", "a", "").DependsOn("B")
				app.NewStack("B", "b", "")
			},
			want: []string{"B", "A"},
		},
		{
			name: "parameter from outside the app",
			build: func(app *App) {
				app.NewStack("A", "a", "").GetParameter("external")
			},
			want: []string{"A"},
		},
		{
			name: "unknown dependency",
			build: func(app *App) {
				app.NewStack("A", "a", "").DependsOn("Missing")
			},
			wantErr: "not in the app",
		},
		{
			name: "cycle",
			build: func(app *App) {
				a := app.NewStack("A", "a", "")
				b := app.NewStack("B", "b", "")
				_, _ = a.PutParameter("a", "1")
				_, _ = b.PutParameter("b", "2")
				a.GetParameter("b")
				b.GetParameter("a")
			},
			wantErr: "cycle",
		},
		{
			name: "two producers",
			build: func(app *App) {
				_, _ = app.NewStack("A", "a", "").PutParameter("x", "1")
				_, _ = app.NewStack("B", "b", "").PutParameter("x", "2")
			},
			wantErr: "put by both",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp("json")
			tt.build(app)
			ordered, err := app.StackOrder()
			if tt.wantErr != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			var got []string
			for _, s := range ordered {
				got = append(got, s.ConfigName)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_StackOutput(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := testApp("json").NewStack("ThingInstaller", "ThingInstallerStack", "")
	group := resources.NewIotThingGroup("mcc-thing-group", s.Refs())
	out, err := s.AddOutput("ThingGroupArn", "thing group", group.Arn())
	require.NoError(err)
	assert.Equal("mccdev-ThingInstallerStack-ThingGroupArn", out.ExportName)
	assert.NotNil(s.Graph.GetResource(group.Id()))

	_, err = s.AddOutput("ThingGroupArn", "again", "x")
	assert.Error(err)
}

func Test_Synth(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			app := testApp(format)
			s := app.NewStack("ComponentDeployment", "ComponentDeploymentStack", "deploys components")
			dir := writeTree(t, map[string]string{"bootstrap": "bin"})
			code, err := s.AddCodeAsset("Handler", dir)
			require.NoError(err)
			assert.Equal(core.RefOf(&resources.StackParameter{
				Name:        AssetsBucketParameter,
				Description: "Bucket holding the stack's code assets",
			}), code.S3Bucket)

			topic := resources.NewSnsTopic("updates", s.Refs())
			require.NoError(s.Add(topic))

			files, err := app.Synth()
			require.NoError(err)

			var paths []string
			byPath := map[string][]byte{}
			for _, f := range files {
				paths = append(paths, f.Path())
				var buf bytes.Buffer
				_, err := f.WriteTo(&buf)
				require.NoError(err)
				byPath[f.Path()] = buf.Bytes()
			}
			asset := s.Assets[0]
			templatePath := "mccdev-ComponentDeploymentStack.template." + format
			assert.Equal([]string{
				"assets/" + asset.Hash + ".zip",
				"mccdev-ComponentDeploymentStack.assets.json",
				templatePath,
			}, paths)

			tmpl, err := cfn.Unmarshal(byPath[templatePath])
			require.NoError(err)
			assert.Equal("deploys components", tmpl.Description)
			assert.Contains(tmpl.Parameters, "AssetsBucket")
			assert.Len(tmpl.Resources, 1)

			var manifest AssetManifest
			require.NoError(json.Unmarshal(byPath["mccdev-ComponentDeploymentStack.assets.json"], &manifest))
			assert.Equal("mccdev-ComponentDeploymentStack", manifest.StackName)
			require.Len(manifest.Assets, 1)
			assert.Equal(BeforeDeploy, manifest.Assets[0].Stage)
			assert.Equal(asset.ContentKey(), manifest.Assets[0].Destination.Key)
		})
	}
}
