package aws

import (
	"regexp"

	"github.com/oide-iot/mcc-infra/pkg/sanitization"
)

// SnsTopicSanitizer returns a sanitized topic name when applied.
var SnsTopicSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w-]+`),
			Replacement: "-",
		},
	}, 256)
