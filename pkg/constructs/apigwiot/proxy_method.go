package apigwiot

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/pkg/errors"
)

// ProxyMethodParams describe a method that forwards to an AWS service API through an AWS
// integration.
type ProxyMethodParams struct {
	Service string
	// Action or Path selects the service API; exactly one is used, Action first.
	Action string
	Path   string

	Api      *resources.RestApi
	Resource *resources.ApiResource
	Method   string
	Role     *resources.IamRole

	RequestTemplate string
	// ContentType is the quoted value of the integration request's Content-Type header. Defaults
	// to 'application/json'.
	ContentType      string
	RequestValidator *resources.RequestValidator

	// IntegrationProps override the base AwsIntegrationProps.
	IntegrationProps map[string]any
	// MethodOptions override the base MethodOptions.
	MethodOptions map[string]any
	Refs          core.ConstructRefSet
}

// AddProxyMethodToApiResource declares the method and its integration. The returned method is not
// yet in any graph.
func AddProxyMethodToApiResource(params ProxyMethodParams) (*resources.ApiMethod, error) {
	contentType := params.ContentType
	if contentType == "" {
		contentType = "'application/json'"
	}
	base := map[string]any{
		"service":               params.Service,
		"integrationHttpMethod": params.Method,
		"options": map[string]any{
			"passthroughBehavior": PassthroughNever,
			"requestParameters": map[string]any{
				"integration.request.header.Content-Type": contentType,
			},
			"requestTemplates": map[string]any{
				"application/json": params.RequestTemplate,
			},
			"integrationResponses": []any{
				map[string]any{"statusCode": "200"},
				map[string]any{
					"statusCode":        "500",
					"responseTemplates": map[string]any{"text/html": "Error"},
					"selectionPattern":  "500",
				},
			},
		},
	}
	switch {
	case params.Action != "":
		base["action"] = params.Action
	case params.Path != "":
		base["path"] = params.Path
	default:
		return nil, errors.New("Either action or path is required")
	}

	merged, err := ConsolidateProps(base, params.IntegrationProps)
	if err != nil {
		return nil, err
	}
	var integration AwsIntegrationProps
	if err := decodeProps(merged, &integration); err != nil {
		return nil, err
	}

	methodDefaults := map[string]any{
		"methodResponses": []any{
			map[string]any{
				"statusCode":         "200",
				"responseParameters": map[string]any{"method.response.header.Content-Type": true},
			},
			map[string]any{
				"statusCode":         "500",
				"responseParameters": map[string]any{"method.response.header.Content-Type": true},
			},
		},
	}
	mergedOptions, err := ConsolidateProps(methodDefaults, params.MethodOptions)
	if err != nil {
		return nil, err
	}
	var options MethodOptions
	if err := decodeProps(mergedOptions, &options); err != nil {
		return nil, err
	}

	method := resources.NewApiMethod(params.Api, params.Resource, params.Method, params.Refs)
	method.AuthorizationType = options.AuthorizationType
	method.ApiKeyRequired = options.ApiKeyRequired
	method.RequestParameters = options.RequestParameters
	method.RequestValidator = params.RequestValidator
	for _, r := range options.MethodResponses {
		method.MethodResponses = append(method.MethodResponses, resources.MethodResponse{
			StatusCode:         r.StatusCode,
			ResponseParameters: r.ResponseParameters,
		})
	}

	method.Integration = &resources.ApiIntegration{
		Type:                  "AWS",
		IntegrationHttpMethod: integration.IntegrationHttpMethod,
		Uri:                   integrationUri(integration),
		PassthroughBehavior:   integration.Options.PassthroughBehavior,
		RequestParameters:     integration.Options.RequestParameters,
		RequestTemplates:      integration.Options.RequestTemplates,
	}
	if params.Role != nil {
		method.Integration.Credentials = params.Role.Arn()
	}
	for _, r := range integration.Options.IntegrationResponses {
		method.Integration.IntegrationResponses = append(method.Integration.IntegrationResponses, resources.IntegrationResponse{
			StatusCode:         r.StatusCode,
			SelectionPattern:   r.SelectionPattern,
			ResponseParameters: r.ResponseParameters,
			ResponseTemplates:  r.ResponseTemplates,
		})
	}
	return method, nil
}

// integrationUri is `arn:<partition>:apigateway:<region>:[<subdomain>.]<service>:path/<path>` (or
// `action/<action>`).
func integrationUri(props AwsIntegrationProps) any {
	host := props.Service
	if props.Subdomain != "" {
		host = props.Subdomain + "." + props.Service
	}
	api := "path/" + props.Path
	if props.Action != "" {
		api = "action/" + props.Action
	}
	return core.Concat("arn:", core.Partition, ":apigateway:", core.Region, ":"+host+":"+api)
}
