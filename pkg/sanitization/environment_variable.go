package sanitization

import (
	"regexp"
)

// EnvVarKeySanitizer returns a sanitized environment key (as set in a Greengrass recipe's Setenv)
// when applied.
var EnvVarKeySanitizer = NewSanitizer(
	[]Rule{
		{
			Pattern:     regexp.MustCompile(`^[^a-zA-Z_]+`),
			Replacement: "",
		},
		{
			Pattern:     regexp.MustCompile(`[-\s.]+`),
			Replacement: "_",
		},
		{
			Pattern:     regexp.MustCompile(`[^a-zA-Z0-9_]+`),
			Replacement: "",
		},
	}, 0)
