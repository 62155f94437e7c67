package clicommon

import (
	"fmt"
	"os"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	// Verbose is 1 for `-v` (debug, except the noisiest loggers) and 2 or more for `-vv`.
	Verbose    LevelledFlag
	JsonLog    bool
	Color      string
	LogsDir    string
	ConfigPath string
}

// noisyLoggers stay at info unless verbosity is at least 2.
var noisyLoggers = map[string]zapcore.Level{
	"greengrass": zap.InfoLevel,
	"assets":     zap.InfoLevel,
}

func SetupRoot(root *cobra.Command, commonCfg *CommonConfig) {
	flags := root.PersistentFlags()
	flags.VarP(&commonCfg.Verbose, "verbose", "v", "Enable verbose logging (repeat for more)")
	flags.Lookup("verbose").NoOptDefVal = "true"
	flags.BoolVar(&commonCfg.JsonLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&commonCfg.Color, "color", "auto", "Colour console logs: auto, always or never")
	flags.StringVar(&commonCfg.LogsDir, "logs-dir", "", "Directory to write per-stack logs to")
	flags.StringVarP(&commonCfg.ConfigPath, "config", "c", "", fmt.Sprintf("App config file (defaults to $%s)", config.AppConfigEnvName))

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logOpts := logging.LogOpts{
			Verbose:      commonCfg.Verbose > 0,
			Color:        commonCfg.Color,
			StackLogsDir: commonCfg.LogsDir,
		}
		if commonCfg.Verbose == 1 {
			logOpts.DefaultLevels = noisyLoggers
		}
		if commonCfg.JsonLog {
			logOpts.Encoding = "json"
		}
		zap.ReplaceGlobals(logOpts.NewLogger())
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		zap.L().Sync() //nolint:errcheck
	}
}

// AddFormatFlag registers -f/--format, which overrides the config's template format.
func AddFormatFlag(flags *pflag.FlagSet, format *string) {
	flags.StringVarP(format, "format", "f", "", "Template format, json or yaml (defaults to the config's Format)")
}

// ReadAppConfig reads the config named by --config, falling back to APP_CONFIG.
func (c *CommonConfig) ReadAppConfig() (config.AppConfig, error) {
	path := config.PathFromEnv(c.ConfigPath)
	if path == "" {
		return config.AppConfig{}, fmt.Errorf("no app config: pass --config or set %s", config.AppConfigEnvName)
	}
	return config.ReadConfig(path)
}

// HandleError prints err (with stack traces when verbose) and exits 1.
func (c *CommonConfig) HandleError(err error) {
	if err == nil {
		return
	}
	if c.Verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
