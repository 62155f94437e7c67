package aws

import (
	"regexp"

	"github.com/oide-iot/mcc-infra/pkg/sanitization"
)

// RestApiNameSanitizer returns a sanitized REST API name when applied.
var RestApiNameSanitizer = sanitization.NewSanitizer(
	[]sanitization.Rule{
		{
			Pattern:     regexp.MustCompile(`[^\w\- ]+`),
			Replacement: "",
		},
	}, 255)
