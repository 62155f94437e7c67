package aws

import (
	"strings"
	"testing"

	"github.com/oide-iot/mcc-infra/pkg/sanitization"
	"github.com/stretchr/testify/assert"
)

func TestSanitizers(t *testing.T) {
	tests := []struct {
		name      string
		sanitizer *sanitization.Sanitizer
		input     string
		want      string
	}{
		{
			name:      "rule name replaces every dash",
			sanitizer: IotRuleSanitizer,
			input:     "mcc-dev-x_thing_updated",
			want:      "mcc_dev_x_thing_updated",
		},
		{
			name:      "rule name strips invalid",
			sanitizer: IotRuleSanitizer,
			input:     "a.b/c",
			want:      "abc",
		},
		{
			name:      "role name",
			sanitizer: IamRoleSanitizer,
			input:     "mccdev thing/role",
			want:      "mccdev_thing_role",
		},
		{
			name:      "bucket is lowercase",
			sanitizer: S3BucketSanitizer,
			input:     "mcc_dev.bucket",
			want:      "mcc-dev.bucket",
		},
		{
			name:      "lambda name",
			sanitizer: LambdaFunctionSanitizer,
			input:     "gg deploy:handler",
			want:      "ggdeployhandler",
		},
		{
			name:      "sns topic",
			sanitizer: SnsTopicSanitizer,
			input:     "thing updated",
			want:      "thing-updated",
		},
		{
			name:      "logical id words",
			sanitizer: LogicalIdSanitizer,
			input:     "api_resource:/message/{topic-level-1}",
			want:      "api resource message topic level 1 ",
		},
		{
			name:      "stack name",
			sanitizer: StackNameSanitizer,
			input:     "1mcc_dev-ThingInstaller",
			want:      "mcc-dev-ThingInstaller",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sanitizer.Apply(tt.input))
		})
	}
}

func TestMaxLength(t *testing.T) {
	assert.Len(t, IamRoleSanitizer.Apply(strings.Repeat("a", 100)), IamRoleSanitizer.MaxLength())
	assert.Len(t, IotRuleSanitizer.Apply(strings.Repeat("a", 200)), 128)
	assert.Equal(t, 64, IamRoleSanitizer.MaxLength())
}
