package main

import (
	"context"
	"os"
	"path/filepath"

	clicommon "github.com/oide-iot/mcc-infra/pkg/cli_common"
	mccio "github.com/oide-iot/mcc-infra/pkg/io"
	"github.com/oide-iot/mcc-infra/pkg/logging"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/oide-iot/mcc-infra/pkg/stacks"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var synthCfg struct {
	outDir string
	format string
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write each stack's CloudFormation template and asset manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return synth(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&synthCfg.outDir, "output", "o", "cdk.out", "Directory to write templates to")
	clicommon.AddFormatFlag(flags, &synthCfg.format)
	return cmd
}

// loadApp reads the app config and declares its stacks.
func loadApp(format string) (*stack.App, error) {
	cfg, err := commonCfg.ReadAppConfig()
	if err != nil {
		return nil, err
	}
	app, err := stacks.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	if format != "" {
		app.Format = format
	}
	return app, nil
}

func synth(ctx context.Context) error {
	app, err := loadApp(synthCfg.format)
	if err != nil {
		return err
	}
	files, err := app.Synth()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(synthCfg.outDir, 0777); err != nil {
		return err
	}
	if err := mccio.OutputTo(ctx, files, synthCfg.outDir); err != nil {
		return err
	}
	zap.S().Debugf("wrote %v", logging.FileNames(files))
	out, _ := filepath.Abs(synthCfg.outDir)
	zap.S().Infof("synthesized %d stacks to %s", len(app.Stacks()), out)
	return nil
}
