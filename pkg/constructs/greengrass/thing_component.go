package greengrass

import (
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/sanitization"
	"github.com/oide-iot/mcc-infra/pkg/templateutils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	RecipeFormatVersion = "2020-01-25"

	ruleTopicPrefix = "topic"
	ruleNameSuffix  = "rule"
)

// ThingComponent is the project's private component, run on every core device of the thing group.
type ThingComponent struct {
	// ComponentName is `<prefix>-<Name>`.
	ComponentName string
	Version       string
	RuleTopic     string
	Recipe        map[string]any
	Component     *resources.GreengrassComponentVersion
}

type ThingComponentProps struct {
	ProjectPrefix string
	Config        config.ThingComponentConfig
	// Bucket is the name of the component upload bucket, usually a deploy-time reference.
	Bucket       any
	BucketPrefix string
	Refs         core.ConstructRefSet
}

// ComponentName is the Greengrass name of a project component.
func ComponentName(prefix, name string) string {
	return prefix + "-" + name
}

// ArtifactKey is where the upload stack publishes a component's zip.
func ArtifactKey(bucketPrefix, componentName, version string) string {
	parts := []string{componentName, version, componentName + ".zip"}
	if bucketPrefix = strings.Trim(bucketPrefix, "/"); bucketPrefix != "" {
		parts = append([]string{bucketPrefix}, parts...)
	}
	return strings.Join(parts, "/")
}

// RuleTopic is the topic the component publishes to for the project's ingestion rule:
// `topic/<lower(prefix)_rule>` with every '-' replaced by '_'.
func RuleTopic(prefix string) string {
	ruleName := strings.ToLower(prefix + "_" + ruleNameSuffix)
	return ruleTopicPrefix + "/" + strings.ReplaceAll(ruleName, "-", "_")
}

// NewThingComponent builds the component recipe, registers the component version in rg, and adds
// the component's deployment entry to components.
func NewThingComponent(rg *core.ResourceGraph, components Components, props ThingComponentProps) (*ThingComponent, error) {
	cfg := props.Config
	if cfg.Name == "" {
		return nil, errors.New("thing component name is required")
	}
	if cfg.Version == "" {
		return nil, errors.Errorf("thing component %s has no version", cfg.Name)
	}
	if props.Bucket == nil {
		return nil, errors.Errorf("thing component %s has no artifact bucket", cfg.Name)
	}

	comp := &ThingComponent{
		ComponentName: ComponentName(props.ProjectPrefix, cfg.Name),
		Version:       cfg.Version,
		RuleTopic:     RuleTopic(props.ProjectPrefix),
	}
	log := zap.S().Named("greengrass").With("component", comp.ComponentName)

	recipe, err := comp.recipe(props)
	if err != nil {
		return nil, err
	}
	comp.Recipe = recipe
	inline, err := core.JSONString(recipe)
	if err != nil {
		return nil, errors.Wrapf(err, "could not render recipe for %s", comp.ComponentName)
	}

	comp.Component = resources.NewGreengrassComponentVersion(comp.ComponentName+"Comp", inline, props.Refs)
	if err := rg.AddDependenciesReflect(comp.Component); err != nil {
		return nil, err
	}

	if err := components.add(comp.ComponentName, comp.deploymentEntry()); err != nil {
		return nil, err
	}
	log.Debugf("added component version %s", comp.Version)
	return comp, nil
}

type scriptData struct {
	ComponentName string
	Version       string
	PythonEnv     string
	EntryPoint    string
	Args          string
	RuleTopic     string
}

func (comp *ThingComponent) recipe(props ThingComponentProps) (map[string]any, error) {
	cfg := props.Config
	data := scriptData{
		ComponentName: comp.ComponentName,
		Version:       comp.Version,
		PythonEnv:     cfg.PythonEnv,
		EntryPoint:    cfg.EntryPoint,
		Args:          cfg.Args,
		RuleTopic:     comp.RuleTopic,
	}
	install, err := templateutils.Render(comp.ComponentName+"/Install", cfg.InstallScript, data)
	if err != nil {
		return nil, err
	}
	run, err := templateutils.Render(comp.ComponentName+"/Run", cfg.RunScript, data)
	if err != nil {
		return nil, err
	}

	nameVersion := comp.ComponentName + ":" + comp.Version
	setenv := map[string]any{
		"COMP_NAME_VERION": nameVersion,
		"RULE_TOPIC":       comp.RuleTopic,
		"SLEEP_TIME":       cfg.SleepTime,
		"FUNCTION_VERION":  nameVersion,
	}
	for k, v := range cfg.Env {
		setenv[sanitization.EnvVarKeySanitizer.Apply(k)] = v
	}

	publisher := cfg.Publisher
	if publisher == "" {
		publisher = config.DefaultPublisher
	}

	return map[string]any{
		"RecipeFormatVersion":  RecipeFormatVersion,
		"ComponentName":        comp.ComponentName,
		"ComponentVersion":     comp.Version,
		"ComponentDescription": "This component's name is " + comp.ComponentName,
		"ComponentPublisher":   publisher,
		"ComponentConfiguration": map[string]any{
			"DefaultConfiguration": map[string]any{
				"accessControl": map[string]any{
					"aws.greengrass.ShadowManager": map[string]any{
						"thing:shadow:1": accessPolicy("Allows access to shadows", []string{
							"aws.greengrass#GetThingShadow",
							"aws.greengrass#UpdateThingShadow",
							"aws.greengrass#DeleteThingShadow",
							"aws.greengrass#SubscribeToTopic",
						}, "*"),
						"thing:shadow:2": accessPolicy("Allows access to things with shadows", []string{
							"aws.greengrass#ListNamedShadowsForThing",
						}, "*"),
					},
				},
			},
		},
		"Manifests": []any{
			map[string]any{
				"Platform": map[string]any{"os": "linux"},
				"Lifecycle": map[string]any{
					"Setenv":  setenv,
					"Install": map[string]any{"script": install},
					"Run":     map[string]any{"script": run},
				},
				"Artifacts": []any{
					map[string]any{
						"URI":       core.Concat("s3://", props.Bucket, "/"+ArtifactKey(props.BucketPrefix, comp.ComponentName, comp.Version)),
						"Unarchive": "ZIP",
					},
				},
			},
		},
	}, nil
}

// deploymentEntry grants the component IPC access to IoT Core MQTT and local pub/sub.
func (comp *ThingComponent) deploymentEntry() map[string]any {
	return map[string]any{
		"componentVersion": comp.Component.ComponentVersion(),
		"configurationUpdate": map[string]any{
			"merge": mustJSON(map[string]any{
				"accessControl": map[string]any{
					"aws.greengrass.ipc.mqttproxy": map[string]any{
						"thing:mqttproxy:1": accessPolicy("Allows access to subscribe and publish to IoTCore", []string{
							"aws.greengrass#PublishToIoTCore",
							"aws.greengrass#SubscribeToIoTCore",
							"aws.greengrass#SubscribeTopic",
							"aws.greengrass#SubscribeToTopic",
						}, "#"),
					},
					"aws.greengrass.ipc.pubsub": map[string]any{
						"thing:pubsub:1": accessPolicy("Allows access to publish/subscribe to all topics.", []string{
							"aws.greengrass#PublishToTopic",
							"aws.greengrass#SubscribeToTopic",
						}, "*"),
					},
				},
			}),
		},
	}
}

func accessPolicy(description string, operations []string, resources ...string) map[string]any {
	return map[string]any{
		"policyDescription": description,
		"operations":        operations,
		"resources":         resources,
	}
}

// mustJSON is for literal documents, which always serialize.
func mustJSON(v any) any {
	s, err := core.JSONString(v)
	if err != nil {
		panic(err)
	}
	return s
}
