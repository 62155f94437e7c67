package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/oide-iot/mcc-infra/pkg/closenicely"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const AppConfigEnvName = "APP_CONFIG"

type (
	AppConfig struct {
		Project Project `json:"Project" yaml:"Project" toml:"Project"`

		// Stack holds one section per stack, keyed by the stack's config name (eg "ThingInstaller").
		// Sections are decoded on demand into the typed configs in stacks.go.
		Stack map[string]map[string]any `json:"Stack" yaml:"Stack" toml:"Stack"`

		// Format is what format the file was originally in.
		Format string `json:"-" yaml:"-" toml:"-"`
		Path   string `json:"-" yaml:"-" toml:"-"`
	}

	Project struct {
		Name    string `json:"Name" yaml:"Name" toml:"Name"`
		Stage   string `json:"Stage" yaml:"Stage" toml:"Stage"`
		Account string `json:"Account,omitempty" yaml:"Account,omitempty" toml:"Account,omitempty"`
		Region  string `json:"Region,omitempty" yaml:"Region,omitempty" toml:"Region,omitempty"`
		Profile string `json:"Profile,omitempty" yaml:"Profile,omitempty" toml:"Profile,omitempty"`
		// AssetBucket receives Lambda code assets. When empty, deploy uses
		// `<prefix>-assets-<account>-<region>` (lowercased).
		AssetBucket string `json:"AssetBucket,omitempty" yaml:"AssetBucket,omitempty" toml:"AssetBucket,omitempty"`
	}
)

// PathFromEnv returns flagValue when set, otherwise the path in the APP_CONFIG environment variable.
func PathFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(AppConfigEnvName)
}

func ReadConfig(fpath string) (AppConfig, error) {
	var appCfg AppConfig

	f, err := os.Open(fpath)
	if err != nil {
		return appCfg, err
	}
	defer closenicely.OrDebug(f)

	switch filepath.Ext(fpath) {
	case ".json":
		err = json.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "toml"

	default:
		err = errors.Errorf("unsupported config file extension %q", filepath.Ext(fpath))
	}
	if err != nil {
		return appCfg, errors.Wrapf(err, "could not read config %s", fpath)
	}
	appCfg.Path = fpath
	zap.S().Debugf("read %s config from %s", appCfg.Format, fpath)
	return appCfg, nil
}

// ProjectPrefix is the project name directly followed by the stage (eg "mcc" + "dev" = "mccdev").
func (p Project) ProjectPrefix() string {
	return p.Name + p.Stage
}

func (a AppConfig) ProjectPrefix() string {
	return a.Project.ProjectPrefix()
}

// HasStack reports whether the config contains a section for the named stack.
func (a AppConfig) HasStack(name string) bool {
	_, ok := a.Stack[name]
	return ok
}

// DecodeStack decodes the named stack section into out. It returns false (and leaves out untouched)
// when the section is absent.
func (a AppConfig) DecodeStack(name string, out any) (bool, error) {
	section, ok := a.Stack[name]
	if !ok {
		return false, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return true, err
	}
	if err := decoder.Decode(section); err != nil {
		return true, errors.Wrapf(err, "could not decode Stack.%s", name)
	}
	return true, nil
}
