package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/google/shlex"
	"github.com/oide-iot/mcc-infra/pkg/multierr"
)

var accountPattern = regexp.MustCompile(`^\d{12}$`)

// Validate checks the project settings and every stack section present in the config. All problems
// are reported together.
func (a AppConfig) Validate() error {
	var errs multierr.Error
	if a.Project.Name == "" {
		errs.Append(fmt.Errorf("Project.Name is required"))
	}
	if a.Project.Stage == "" {
		errs.Append(fmt.Errorf("Project.Stage is required"))
	}
	if a.Project.Account != "" && !accountPattern.MatchString(a.Project.Account) {
		errs.Append(fmt.Errorf("Project.Account '%s' must be a 12 digit account id", a.Project.Account))
	}

	if cfg, err := a.ThingInstaller(); err != nil {
		errs.Append(err)
	} else if cfg != nil {
		errs.Append(cfg.Validate())
	}
	if cfg, err := a.ComponentUpload(); err != nil {
		errs.Append(err)
	} else if cfg != nil {
		errs.Append(cfg.Validate())
	}
	if cfg, err := a.ComponentDeployment(); err != nil {
		errs.Append(err)
	} else if cfg != nil {
		errs.Append(cfg.Validate())
		if !a.HasStack(ThingInstallerSection) {
			errs.Append(fmt.Errorf("Stack.%s requires Stack.%s (for the thing group)", ComponentDeploymentSection, ThingInstallerSection))
		}
		if !a.HasStack(ComponentUploadSection) {
			errs.Append(fmt.Errorf("Stack.%s requires Stack.%s (for the artifact bucket)", ComponentDeploymentSection, ComponentUploadSection))
		}
	}
	if cfg, err := a.ThingMonitor(); err != nil {
		errs.Append(err)
	} else if cfg != nil {
		errs.Append(cfg.Validate())
	}
	if cfg, err := a.ApiGateway(); err != nil {
		errs.Append(err)
	} else if cfg != nil {
		errs.Append(cfg.Validate())
	}
	return errs.ErrOrNil()
}

func (cfg ThingInstallerConfig) Validate() error {
	if cfg.ThingGroupName == "" {
		return fmt.Errorf("Stack.%s.ThingGroupName is required", ThingInstallerSection)
	}
	return nil
}

func (cfg ComponentUploadConfig) Validate() error {
	var errs multierr.Error
	if cfg.BucketPrefix == "" {
		errs.Append(fmt.Errorf("Stack.%s.BucketPrefix is required", ComponentUploadSection))
	}
	if strings.HasPrefix(cfg.BucketPrefix, "/") || strings.HasSuffix(cfg.BucketPrefix, "/") {
		errs.Append(fmt.Errorf("Stack.%s.BucketPrefix '%s' must not start or end with '/'", ComponentUploadSection, cfg.BucketPrefix))
	}
	for i, c := range cfg.Components {
		if c.Name == "" {
			errs.Append(fmt.Errorf("Stack.%s.Components[%d].Name is required", ComponentUploadSection, i))
		}
		if err := validateVersion(c.Version); err != nil {
			errs.Append(fmt.Errorf("Stack.%s.Components[%d].Version: %w", ComponentUploadSection, i, err))
		}
	}
	return errs.ErrOrNil()
}

func (cfg ComponentDeploymentConfig) Validate() error {
	var errs multierr.Error
	if cfg.Thing.Name == "" {
		errs.Append(fmt.Errorf("Stack.%s.Thing.Name is required", ComponentDeploymentSection))
	}
	if err := validateVersion(cfg.Thing.Version); err != nil {
		errs.Append(fmt.Errorf("Stack.%s.Thing.Version: %w", ComponentDeploymentSection, err))
	}
	if _, err := shlex.Split(cfg.Thing.Args); err != nil {
		errs.Append(fmt.Errorf("Stack.%s.Thing.Args '%s' are not valid shell words: %w", ComponentDeploymentSection, cfg.Thing.Args, err))
	}
	for i, pc := range cfg.PublicComponents {
		if pc.Name == "" {
			errs.Append(fmt.Errorf("Stack.%s.PublicComponents[%d].Name is required", ComponentDeploymentSection, i))
		}
		if err := validateVersion(pc.Version); err != nil {
			errs.Append(fmt.Errorf("Stack.%s.PublicComponents[%d].Version: %w", ComponentDeploymentSection, i, err))
		}
	}
	return errs.ErrOrNil()
}

func (cfg ThingMonitorConfig) Validate() error {
	var errs multierr.Error
	if cfg.WebhookUrl == "" && cfg.SubscriberLambdaArn == "" {
		errs.Append(fmt.Errorf("Stack.%s needs a WebhookUrl or a SubscriberLambdaArn", ThingMonitorSection))
	}
	if cfg.WebhookUrl != "" {
		u, err := url.Parse(cfg.WebhookUrl)
		switch {
		case err != nil:
			errs.Append(fmt.Errorf("Stack.%s.WebhookUrl: %w", ThingMonitorSection, err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs.Append(fmt.Errorf("Stack.%s.WebhookUrl '%s' must use http or https", ThingMonitorSection, cfg.WebhookUrl))
		}
	}
	if cfg.SubscriberLambdaArn != "" && !strings.HasPrefix(cfg.SubscriberLambdaArn, "arn:") {
		errs.Append(fmt.Errorf("Stack.%s.SubscriberLambdaArn '%s' is not an ARN", ThingMonitorSection, cfg.SubscriberLambdaArn))
	}
	seen := make(map[string]bool)
	for i, r := range cfg.Rules {
		if r.Name == "" || r.Topic == "" || r.SnsTopic == "" {
			errs.Append(fmt.Errorf("Stack.%s.Rules[%d] needs Name, Topic and SnsTopic", ThingMonitorSection, i))
		}
		if seen[r.Name] {
			errs.Append(fmt.Errorf("Stack.%s.Rules[%d]: duplicate rule name '%s'", ThingMonitorSection, i, r.Name))
		}
		seen[r.Name] = true
	}
	return errs.ErrOrNil()
}

func (cfg ApiGatewayConfig) Validate() error {
	if strings.TrimSpace(cfg.IotEndpointAddress) == "" {
		return fmt.Errorf("Stack.%s.IotEndpointAddress is required", ApiGatewaySection)
	}
	return nil
}

func validateVersion(v string) error {
	if v == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(v); err != nil {
		return fmt.Errorf("'%s' is not a semantic version: %w", v, err)
	}
	return nil
}
