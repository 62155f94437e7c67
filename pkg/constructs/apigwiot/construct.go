package apigwiot

import (
	"fmt"
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TopicNestingLevel is how many topic levels `/message` accepts. IoT Core allows at most 7 slashes
// in a topic beyond the mandatory Basic Ingest prefix.
const TopicNestingLevel = 7

const (
	iotDataService      = "iotdata"
	jsonPassthrough     = "$input.json('$')"
	defaultRoleName     = "apigateway-iot-role"
	defaultPolicyName   = "awsapigatewayiotpolicy"
	requestValidatorId  = "aws-apigateway-iot-req-val"
	getRequestValidator = "aws-apigateway-iot-getreq-val"
)

var cfnNagW59 = map[string]any{
	"id":     "W59",
	"reason": "When ApiKey is being created, we also set apikeyRequired to true, so techincally apiGateway still looks for apiKey even though user specified AuthorizationType to NONE",
}

type (
	Props struct {
		// IotEndpoint is the account's IoT data endpoint. Only the subdomain is used, so both
		// "ab123cdefghij4l-ats" and "ab123cdefghij4l-ats.iot.us-east-1.amazonaws.com" work.
		IotEndpoint  string
		CreateApiKey bool
		// ExecutionRole is the role API Gateway assumes to call IoT. When nil, a role allowed to
		// publish to any topic and to read and update any shadow is created.
		ExecutionRole *resources.IamRole
		// ApiGatewayProps override the REST API defaults, see [RestApiProps].
		ApiGatewayProps map[string]any
	}

	// ApiGatewayToIot is a REST API proxying topic publishes and shadow calls to IoT Core.
	ApiGatewayToIot struct {
		Name                string
		Api                 *resources.RestApi
		Role                *resources.IamRole
		RequestValidator    *resources.RequestValidator
		GetRequestValidator *resources.RequestValidator
		Methods             []*resources.ApiMethod
		Deployment          *resources.ApiDeployment
		Stage               *resources.ApiStage
		UsagePlan           *resources.UsagePlan
		ApiKey              *resources.ApiKey

		props        RestApiProps
		endpoint     string
		createApiKey bool
		refs         core.ConstructRefSet
		rg           *core.ResourceGraph
	}
)

// NewApiGatewayToIot builds the API into rg.
func NewApiGatewayToIot(rg *core.ResourceGraph, name string, props Props) (*ApiGatewayToIot, error) {
	endpoint := strings.Split(strings.TrimSpace(props.IotEndpoint), ".")[0]
	if endpoint == "" {
		return nil, errors.New("specify a valid iotEndpoint")
	}
	if v, ok := props.ApiGatewayProps["endpointTypes"]; ok && v != nil {
		return nil, errors.New("Solutions Constructs internally uses endpointConfiguration, use endpointConfiguration instead of endpointTypes")
	}

	extra := map[string]any{
		"binaryMediaTypes": []any{"application/octet-stream"},
		"defaultMethodOptions": map[string]any{
			"apiKeyRequired": props.CreateApiKey,
		},
	}
	apiProps, err := ConsolidateProps(DefaultRestApiProps(), extra, props.ApiGatewayProps, map[string]any{"cloudWatchRole": false})
	if err != nil {
		return nil, err
	}

	c := &ApiGatewayToIot{
		Name:         name,
		endpoint:     endpoint,
		createApiKey: props.CreateApiKey,
		refs:         core.ConstructRefsOf(name),
		rg:           rg,
	}
	if err := decodeProps(apiProps, &c.props); err != nil {
		return nil, err
	}

	if props.ExecutionRole != nil {
		c.Role = props.ExecutionRole
	} else if c.Role, err = c.createExecutionRole(); err != nil {
		return nil, err
	}

	c.createRestApi()
	c.RequestValidator = resources.NewRequestValidator(c.Api, requestValidatorId, false, true, c.refs)
	c.GetRequestValidator = resources.NewRequestValidator(c.Api, getRequestValidator, false, false, c.refs)

	if err := c.buildTree(); err != nil {
		return nil, err
	}
	if err := c.createDeployment(); err != nil {
		return nil, err
	}
	zap.S().Debugf("%s: %d methods on %s", name, len(c.Methods), c.Api.Name)
	return c, nil
}

func (c *ApiGatewayToIot) createExecutionRole() (*resources.IamRole, error) {
	iotArn := func(suffix string) any {
		return core.Concat("arn:aws:iot:", core.Region, ":", core.AccountId, ":"+suffix)
	}
	role := &resources.IamRole{}
	err := role.Create(c.rg, resources.RoleCreateParams{
		Name:      defaultRoleName,
		AssumedBy: []string{"apigateway.amazonaws.com"},
		Path:      "/",
		InlinePolicies: []*resources.IamInlinePolicy{
			{
				PolicyName: defaultPolicyName,
				PolicyDocument: &resources.PolicyDocument{
					Version: resources.VERSION,
					Statement: []resources.StatementEntry{
						{
							Effect:   "Allow",
							Action:   []string{"iot:UpdateThingShadow", "iot:GetThingShadow", "iot:ListNamedShadowsForThing"},
							Resource: []any{iotArn("thing/*")},
						},
						{
							Effect:   "Allow",
							Action:   []string{"iot:Publish"},
							Resource: []any{iotArn("topic/*")},
						},
					},
				},
			},
		},
		Refs: c.refs,
	})
	return role, err
}

func (c *ApiGatewayToIot) createRestApi() {
	c.Api = resources.NewRestApi(c.props.RestApiName, c.refs)
	c.Api.Description = c.props.Description
	c.Api.BinaryMediaTypes = c.props.BinaryMediaTypes
	if len(c.props.EndpointConfiguration.Types) > 0 {
		c.Api.EndpointConfiguration = &resources.EndpointConfiguration{Types: c.props.EndpointConfiguration.Types}
	}
	c.rg.AddResource(c.Api)
}

func (c *ApiGatewayToIot) buildTree() error {
	// /message/{topic-level-1}/.../{topic-level-7}
	message := resources.NewApiResource(c.Api, nil, "message", c.refs)
	topicPath := "topics"
	parent := message
	integParams := map[string]string{}
	methodParams := map[string]bool{}
	for level := 1; level <= TopicNestingLevel; level++ {
		topicName := fmt.Sprintf("topic-level-%d", level)
		topic := resources.NewApiResource(c.Api, parent, "{"+topicName+"}", c.refs)
		topicPath = topicPath + "/{" + topicName + "}"
		integParams["integration.request.path."+topicName] = "method.request.path." + topicName
		methodParams["method.request.path."+topicName] = true
		if err := c.addResourceMethod(topic, topicPath, integParams, methodParams, "POST"); err != nil {
			return err
		}
		parent = topic
	}

	// /shadow/{thingName}[/{shadowName}]
	shadow := resources.NewApiResource(c.Api, nil, "shadow", c.refs)
	thing := resources.NewApiResource(c.Api, shadow, "{thingName}", c.refs)
	shadowParams := map[string]string{"integration.request.path.thingName": "method.request.path.thingName"}
	methodShadowParams := map[string]bool{"method.request.path.thingName": true}
	if err := c.addResourceMethod(thing, "things/{thingName}/shadow", shadowParams, methodShadowParams, "POST"); err != nil {
		return err
	}

	named := resources.NewApiResource(c.Api, thing, "{shadowName}", c.refs)
	namedParams := map[string]string{
		"integration.request.path.thingName":  "method.request.path.thingName",
		"integration.request.path.shadowName": "method.request.path.shadowName",
	}
	methodNamedParams := map[string]bool{
		"method.request.path.thingName":  true,
		"method.request.path.shadowName": true,
	}
	for _, method := range []string{"POST", "GET"} {
		if err := c.addResourceMethod(named, "things/{thingName}/shadow?name={shadowName}", namedParams, methodNamedParams, method); err != nil {
			return err
		}
	}

	// /api/things/shadow/ListNamedShadowsForThing/{thingName}
	res := resources.NewApiResource(c.Api, nil, "api", c.refs)
	for _, part := range []string{"things", "shadow", "ListNamedShadowsForThing", "{thingName}"} {
		res = resources.NewApiResource(c.Api, res, part, c.refs)
	}
	return c.addResourceMethod(res, "api/things/shadow/ListNamedShadowsForThing/{thingName}", namedParams, methodNamedParams, "GET")
}

func (c *ApiGatewayToIot) addResourceMethod(
	res *resources.ApiResource,
	path string,
	integParams map[string]string,
	methodParams map[string]bool,
	httpMethod string,
) error {
	jsonResponse := map[string]any{"application/json": jsonPassthrough}
	integrationProps := map[string]any{
		"subdomain": c.endpoint,
		"options": map[string]any{
			"requestParameters": integParams,
			"integrationResponses": []any{
				map[string]any{"statusCode": "200", "selectionPattern": `2\d{2}`, "responseTemplates": jsonResponse},
				map[string]any{"statusCode": "500", "selectionPattern": `5\d{2}`, "responseTemplates": jsonResponse},
				map[string]any{"statusCode": "403", "responseTemplates": jsonResponse},
			},
			"passthroughBehavior": PassthroughWhenNoMatch,
		},
	}
	methodOptions, err := ConsolidateProps(c.defaultMethodOptions(), map[string]any{
		"requestParameters": methodParams,
		"methodResponses": []any{
			map[string]any{"statusCode": "200"},
			map[string]any{"statusCode": "500"},
			map[string]any{"statusCode": "403"},
		},
	})
	if err != nil {
		return err
	}

	params := ProxyMethodParams{
		Service:          iotDataService,
		Path:             path,
		Api:              c.Api,
		Resource:         res,
		Method:           httpMethod,
		Role:             c.Role,
		RequestTemplate:  jsonPassthrough,
		RequestValidator: c.RequestValidator,
		IntegrationProps: integrationProps,
		MethodOptions:    methodOptions,
		Refs:             c.refs,
	}
	if httpMethod == "GET" {
		params.RequestTemplate = ""
		params.RequestValidator = c.GetRequestValidator
		params.ContentType = "'text/html'"
	}

	method, err := AddProxyMethodToApiResource(params)
	if err != nil {
		return errors.Wrapf(err, "could not add %s %s", httpMethod, res.Path())
	}
	if c.createApiKey {
		method.AddMetadata("cfn_nag", map[string]any{
			"rules_to_suppress": []any{cfnNagW59},
		})
	}
	if err := c.rg.AddDependenciesReflectDeep(method); err != nil {
		return err
	}
	c.Methods = append(c.Methods, method)
	return nil
}

// defaultMethodOptions are the API-wide method options, applied under each method's own.
func (c *ApiGatewayToIot) defaultMethodOptions() map[string]any {
	return map[string]any{
		"authorizationType": c.props.DefaultMethodOptions.AuthorizationType,
		"apiKeyRequired":    c.props.DefaultMethodOptions.ApiKeyRequired,
	}
}

func (c *ApiGatewayToIot) createDeployment() error {
	deploy := c.props.DeployOptions
	c.Deployment = &resources.ApiDeployment{
		Name:          "Deployment",
		ConstructRefs: c.refs,
		RestApi:       c.Api,
		Description:   c.props.Description,
		Methods:       c.Methods,
	}
	stageName := deploy.StageName
	if stageName == "" {
		stageName = DefaultStageName
	}
	c.Stage = &resources.ApiStage{
		Name:           "DeploymentStage." + stageName,
		ConstructRefs:  c.refs,
		RestApi:        c.Api,
		Deployment:     c.Deployment,
		StageName:      stageName,
		TracingEnabled: deploy.TracingEnabled,
	}
	if deploy.LoggingLevel != "" || deploy.DataTraceEnabled || deploy.MetricsEnabled {
		c.Stage.MethodSettings = []resources.MethodSetting{{
			ResourcePath:     "/*",
			HttpMethod:       "*",
			LoggingLevel:     deploy.LoggingLevel,
			DataTraceEnabled: deploy.DataTraceEnabled,
			MetricsEnabled:   deploy.MetricsEnabled,
		}}
	}

	c.UsagePlan = &resources.UsagePlan{
		Name:          "UsagePlan",
		ConstructRefs: c.refs,
		ApiStages:     []resources.UsagePlanStage{{ApiId: c.Api, Stage: c.Stage}},
	}
	toAdd := []core.Resource{c.Deployment, c.Stage, c.UsagePlan}

	if c.props.DefaultMethodOptions.ApiKeyRequired {
		c.ApiKey = &resources.ApiKey{
			Name:          c.Api.Name + "-ApiKey",
			ConstructRefs: c.refs,
			Enabled:       true,
			StageKeys:     []resources.ApiKeyStage{{RestApi: c.Api, Stage: c.Stage}},
		}
		toAdd = append(toAdd, &resources.UsagePlanKey{
			Name:          c.Api.Name + "-UsagePlanKey",
			ConstructRefs: c.refs,
			Key:           c.ApiKey,
			KeyType:       "API_KEY",
			UsagePlan:     c.UsagePlan,
		})
	}
	for _, r := range toAdd {
		if err := c.rg.AddDependenciesReflectDeep(r); err != nil {
			return err
		}
	}
	return nil
}

// Url is the invoke URL of the deployed stage.
func (c *ApiGatewayToIot) Url() core.Join {
	return c.Stage.InvokeUrl()
}
