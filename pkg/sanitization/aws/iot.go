package aws

import (
	"regexp"

	"github.com/oide-iot/mcc-infra/pkg/sanitization"
)

// IotRuleSanitizer returns a sanitized topic rule name when applied. Rule names only allow
// letters, digits and underscores, so every "-" becomes "_".
var IotRuleSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[-\s]`),
			Replacement: "_",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_]+`),
			Replacement: "",
		},
	}, 128)

// IotNameSanitizer returns a sanitized name for thing groups, policies and role aliases when applied.
var IotNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w=,@:.-]`),
			Replacement: "-",
		},
	}, 128)

// GreengrassComponentSanitizer returns a sanitized component name when applied.
var GreengrassComponentSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w.-]`),
			Replacement: "-",
		},
	}, 128)
