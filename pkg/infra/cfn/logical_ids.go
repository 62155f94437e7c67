package cfn

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

// maxReadableLength leaves room for the hash suffix within the 255 character logical id limit.
const maxReadableLength = 200

// LogicalId is the template name of r: the PascalCase type and name followed by the first 8 hex
// characters of the SHA-256 of the full resource id. Resources implementing
// [resources.LogicalIdentifier] choose their own.
func LogicalId(r core.Resource) string {
	if named, ok := r.(resources.LogicalIdentifier); ok {
		return named.LogicalId()
	}
	id := r.Id()
	readable := strcase.ToCamel(aws.LogicalIdSanitizer.Apply(strings.Join([]string{id.Type, id.Namespace, id.Name}, " ")))
	if len(readable) > maxReadableLength {
		readable = readable[:maxReadableLength]
	}
	sum := sha256.Sum256([]byte(id.String()))
	return readable + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}
