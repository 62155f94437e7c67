package aws

import (
	"regexp"

	"github.com/oide-iot/mcc-infra/pkg/sanitization"
)

// LogicalIdSanitizer strips everything a template logical id cannot hold. Separators become spaces
// so that the caller can case-convert word boundaries.
var LogicalIdSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^A-Za-z0-9]+`),
			Replacement: " ",
		},
	}, 0)

// StackNameSanitizer returns a sanitized stack name when applied.
var StackNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z]+`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9-]+`),
			Replacement: "-",
		},
	}, 128)

// SsmParameterSanitizer returns a sanitized parameter name segment when applied.
var SsmParameterSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_.\-/]+`),
			Replacement: "-",
		},
	}, 1011)
