package main

import (
	"context"
	"os"
	"os/signal"

	clicommon "github.com/oide-iot/mcc-infra/pkg/cli_common"
	"github.com/spf13/cobra"
)

var commonCfg clicommon.CommonConfig

func main() {
	var rootCmd = &cobra.Command{
		Use:           "mccinfra",
		Short:         "Synthesize and deploy the Greengrass and IoT infrastructure of a project",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clicommon.SetupRoot(rootCmd, &commonCfg)

	rootCmd.AddCommand(newSynthCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newPolicyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	commonCfg.HandleError(err)
}
