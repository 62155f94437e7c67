// Package stacks declares the project's deployable stacks from the app config.
package stacks

import (
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/multierr"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"go.uber.org/zap"
)

// Parameters shared between stacks through SSM.
const (
	ThingGroupNameParameter   = "thing-group-name"
	RoleAliasNameParameter    = "role-alias-name"
	IotPolicyNameParameter    = "iot-policy-name"
	UploadBucketNameParameter = "gg-comp-upload-bucket-name"
)

// NewApp validates cfg and declares a stack for each configured section. Sections missing from
// the config are skipped.
func NewApp(cfg config.AppConfig) (*stack.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := stack.NewApp(cfg)

	builders := []struct {
		section string
		build   func(*stack.App) error
	}{
		{config.ThingInstallerSection, addThingInstaller},
		{config.ComponentUploadSection, addComponentUpload},
		{config.ComponentDeploymentSection, addComponentDeployment},
		{config.ThingMonitorSection, addThingMonitor},
		{config.ApiGatewaySection, addApiGatewayDeployment},
	}
	var errs multierr.Error
	for _, b := range builders {
		if !cfg.HasStack(b.section) {
			zap.S().Debugf("no %s section, skipping stack", b.section)
			continue
		}
		errs.Append(b.build(app))
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}
	return app, nil
}

func addThingInstaller(app *stack.App) error {
	cfg, err := app.Config.ThingInstaller()
	if err != nil {
		return err
	}
	_, err = NewThingInstallerStack(app, cfg)
	return err
}

func addComponentUpload(app *stack.App) error {
	cfg, err := app.Config.ComponentUpload()
	if err != nil {
		return err
	}
	_, err = NewComponentUploadStack(app, cfg)
	return err
}

func addComponentDeployment(app *stack.App) error {
	cfg, err := app.Config.ComponentDeployment()
	if err != nil {
		return err
	}
	_, err = NewComponentDeploymentStack(app, cfg)
	return err
}

func addThingMonitor(app *stack.App) error {
	cfg, err := app.Config.ThingMonitor()
	if err != nil {
		return err
	}
	_, err = NewThingMonitorStack(app, cfg)
	return err
}

func addApiGatewayDeployment(app *stack.App) error {
	cfg, err := app.Config.ApiGateway()
	if err != nil {
		return err
	}
	_, err = NewApiGatewayDeploymentStack(app, cfg)
	return err
}
