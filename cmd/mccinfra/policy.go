package main

import (
	"context"
	"os"

	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/deploy"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var policyCfg struct {
	document string
	name     string
}

func newPolicyCmd() *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage the IoT policy of the core devices",
	}
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Make a policy document the default version of the core device IoT policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return updatePolicy(cmd.Context())
		},
	}
	flags := updateCmd.Flags()
	flags.StringVarP(&policyCfg.document, "policy", "p", "", "Policy document (JSON file)")
	flags.StringVar(&policyCfg.name, "name", "", "Policy name (defaults to ThingInstaller's IoTPolicyName)")
	_ = updateCmd.MarkFlagRequired("policy")

	policyCmd.AddCommand(updateCmd)
	return policyCmd
}

func updatePolicy(ctx context.Context) error {
	cfg, err := commonCfg.ReadAppConfig()
	if err != nil {
		return err
	}
	name := policyCfg.name
	if name == "" {
		installer, err := cfg.ThingInstaller()
		if err != nil {
			return err
		}
		name = config.DefaultIoTPolicyName
		if installer != nil {
			name = installer.IoTPolicyName
		}
	}
	document, err := os.ReadFile(policyCfg.document)
	if err != nil {
		return errors.Wrap(err, "could not read policy document")
	}

	clients, err := deploy.NewClients(ctx, cfg.Project)
	if err != nil {
		return err
	}
	if _, err := clients.ResolveAccount(ctx, cfg.Project); err != nil {
		return err
	}
	version, err := deploy.UpdatePolicy(ctx, clients.Iot, name, document)
	if err != nil {
		return err
	}
	zap.S().Infof("%s is now at version %s", name, version)
	return nil
}
