package apigwiot

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Props maps use the camelCase keys of the API Gateway L2 props (eg "deployOptions",
// "defaultMethodOptions") so that overrides from config files read the same as the defaults.
type (
	RestApiProps struct {
		RestApiName           string                `mapstructure:"restApiName"`
		Description           string                `mapstructure:"description"`
		EndpointTypes         []string              `mapstructure:"endpointTypes"`
		EndpointConfiguration EndpointConfiguration `mapstructure:"endpointConfiguration"`
		CloudWatchRole        bool                  `mapstructure:"cloudWatchRole"`
		BinaryMediaTypes      []string              `mapstructure:"binaryMediaTypes"`
		DeployOptions         DeployOptions         `mapstructure:"deployOptions"`
		DefaultMethodOptions  MethodOptions         `mapstructure:"defaultMethodOptions"`
	}

	EndpointConfiguration struct {
		Types []string `mapstructure:"types"`
	}

	DeployOptions struct {
		StageName        string `mapstructure:"stageName"`
		Description      string `mapstructure:"description"`
		LoggingLevel     string `mapstructure:"loggingLevel"`
		DataTraceEnabled bool   `mapstructure:"dataTraceEnabled"`
		TracingEnabled   bool   `mapstructure:"tracingEnabled"`
		MetricsEnabled   bool   `mapstructure:"metricsEnabled"`
	}

	MethodOptions struct {
		AuthorizationType string           `mapstructure:"authorizationType"`
		ApiKeyRequired    bool             `mapstructure:"apiKeyRequired"`
		RequestParameters map[string]bool  `mapstructure:"requestParameters"`
		MethodResponses   []MethodResponse `mapstructure:"methodResponses"`
	}

	MethodResponse struct {
		StatusCode         string          `mapstructure:"statusCode"`
		ResponseParameters map[string]bool `mapstructure:"responseParameters"`
	}

	AwsIntegrationProps struct {
		Service               string             `mapstructure:"service"`
		Subdomain             string             `mapstructure:"subdomain"`
		IntegrationHttpMethod string             `mapstructure:"integrationHttpMethod"`
		Path                  string             `mapstructure:"path"`
		Action                string             `mapstructure:"action"`
		Options               IntegrationOptions `mapstructure:"options"`
	}

	IntegrationOptions struct {
		PassthroughBehavior  string                `mapstructure:"passthroughBehavior"`
		RequestParameters    map[string]string     `mapstructure:"requestParameters"`
		RequestTemplates     map[string]string     `mapstructure:"requestTemplates"`
		IntegrationResponses []IntegrationResponse `mapstructure:"integrationResponses"`
	}

	IntegrationResponse struct {
		StatusCode         string            `mapstructure:"statusCode"`
		SelectionPattern   string            `mapstructure:"selectionPattern"`
		ResponseParameters map[string]string `mapstructure:"responseParameters"`
		ResponseTemplates  map[string]string `mapstructure:"responseTemplates"`
	}
)

const (
	EndpointTypeEdge     = "EDGE"
	AuthorizationTypeIAM = "AWS_IAM"
	LoggingLevelInfo     = "INFO"

	PassthroughNever       = "NEVER"
	PassthroughWhenNoMatch = "WHEN_NO_MATCH"

	DefaultStageName   = "prod"
	DefaultRestApiName = "RestApi"
)

// DefaultRestApiProps are the props of an edge-optimized API with IAM authorization and X-Ray
// tracing.
func DefaultRestApiProps() map[string]any {
	return map[string]any{
		"restApiName": DefaultRestApiName,
		"endpointConfiguration": map[string]any{
			"types": []any{EndpointTypeEdge},
		},
		"cloudWatchRole": false,
		"deployOptions": map[string]any{
			"stageName":        DefaultStageName,
			"loggingLevel":     LoggingLevelInfo,
			"dataTraceEnabled": false,
			"tracingEnabled":   true,
		},
		"defaultMethodOptions": map[string]any{
			"authorizationType": AuthorizationTypeIAM,
		},
	}
}

// ConsolidateProps merges each layer of props over defaults, later layers winning. Nested maps are
// merged key by key, arrays are replaced whole, and explicit zero values (false, "") still
// override. None of the inputs are modified.
func ConsolidateProps(defaults map[string]any, layers ...map[string]any) (map[string]any, error) {
	result := normalize(defaults).(map[string]any)
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if err := mergo.Merge(&result, normalize(layer).(map[string]any), mergo.WithOverride); err != nil {
			return nil, errors.Wrap(err, "could not merge props")
		}
	}
	return result, nil
}

// decodeProps decodes consolidated props into out. Keys out doesn't know about are logged, not
// rejected: they are valid L2 props this construct has no use for.
func decodeProps(props map[string]any, out any) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   out,
		Metadata: &md,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(props); err != nil {
		return errors.Wrapf(err, "invalid %T", out)
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		zap.S().Debugf("ignoring unsupported %T keys %v", out, md.Unused)
	}
	return nil
}

// normalize deep-copies v, turning every map into map[string]any and every slice into []any so
// that merging never has to reconcile differently-typed containers.
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return map[string]any{}
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}
