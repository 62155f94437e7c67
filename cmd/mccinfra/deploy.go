package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	clicommon "github.com/oide-iot/mcc-infra/pkg/cli_common"
	"github.com/oide-iot/mcc-infra/pkg/deploy"
	"github.com/oide-iot/mcc-infra/pkg/logging"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var deployCfg struct {
	format     string
	noProgress bool
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [stack...]",
		Short: "Compare the synthesized templates with the deployed stacks",
		Long:  "Compare the synthesized templates with the deployed stacks. Stacks are named by their config section (eg ThingInstaller); all stacks are compared by default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), args)
		},
	}
}

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [stack...]",
		Short: "Deploy the stacks in dependency order",
		Long:  "Deploy the stacks in dependency order. Stacks are named by their config section (eg ThingInstaller); all stacks are deployed by default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), args)
		},
	}
	flags := cmd.Flags()
	clicommon.AddFormatFlag(flags, &deployCfg.format)
	flags.BoolVar(&deployCfg.noProgress, "no-progress", false, "Do not show asset upload progress")
	return cmd
}

// compileSelected compiles the app and keeps the stacks whose config section is in selected (all
// of them when selected is empty), preserving deployment order.
func compileSelected(app *stack.App, selected []string) ([]stack.Synthesized, error) {
	compiled, err := app.Compile()
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return compiled, nil
	}
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		if app.Stack(name) == nil {
			return nil, errors.Errorf("no stack %q in the app config", name)
		}
		want[name] = true
	}
	var out []stack.Synthesized
	for _, c := range compiled {
		if want[c.Stack.ConfigName] {
			out = append(out, c)
		}
	}
	return out, nil
}

func runDiff(ctx context.Context, selected []string) error {
	app, err := loadApp("")
	if err != nil {
		return err
	}
	compiled, err := compileSelected(app, selected)
	if err != nil {
		return err
	}
	clients, err := deploy.NewClients(ctx, app.Config.Project)
	if err != nil {
		return err
	}
	diffs, err := deploy.Diff(ctx, clients.CloudFormation, compiled)
	if err != nil {
		return err
	}
	deploy.Print(os.Stdout, diffs)
	return nil
}

func runDeploy(ctx context.Context, selected []string) error {
	app, err := loadApp(deployCfg.format)
	if err != nil {
		return err
	}
	compiled, err := compileSelected(app, selected)
	if err != nil {
		return err
	}
	clients, err := deploy.NewClients(ctx, app.Config.Project)
	if err != nil {
		return err
	}
	account, err := clients.ResolveAccount(ctx, app.Config.Project)
	if err != nil {
		return err
	}
	zap.S().Infof("deploying %d stacks to %s in %s", len(compiled), account, clients.Region)

	d := &deploy.Deployer{
		Clients: clients,
		Project: app.Config.Project,
		Account: account,
		Format:  app.Format,
	}
	if !deployCfg.noProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		d.Progress = os.Stderr
	}
	results, err := d.Deploy(ctx, compiled)
	for _, r := range results {
		printOutputs(r)
	}
	if err != nil {
		zap.L().Error("deploy failed", zap.Error(err),
			logging.PostLogMessageField("see the stack events in the CloudFormation console for the failing resource"))
		return err
	}
	return nil
}

func printOutputs(r deploy.StackResult) {
	if len(r.Outputs) == 0 {
		return
	}
	keys := make([]string, 0, len(r.Outputs))
	for k := range r.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println(r.StackName)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, r.Outputs[k])
	}
}
