package resources

import (
	"fmt"
	"strings"

	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
)

const (
	REST_API_TYPE           = "rest_api"
	API_RESOURCE_TYPE       = "api_resource"
	API_METHOD_TYPE         = "api_method"
	REQUEST_VALIDATOR_TYPE  = "api_request_validator"
	API_DEPLOYMENT_TYPE     = "api_deployment"
	API_STAGE_TYPE          = "api_stage"
	API_USAGE_PLAN_TYPE     = "api_usage_plan"
	API_KEY_TYPE            = "api_key"
	API_USAGE_PLAN_KEY_TYPE = "api_usage_plan_key"
)

type (
	RestApi struct {
		Name                  string
		ConstructRefs         core.ConstructRefSet   `cfn:"-"`
		ApiName               string                 `cfn:"Name"`
		Description           string                 `cfn:"Description"`
		BinaryMediaTypes      []string               `cfn:"BinaryMediaTypes"`
		EndpointConfiguration *EndpointConfiguration `cfn:"EndpointConfiguration"`
	}

	EndpointConfiguration struct {
		Types []string `cfn:"Types"`
	}

	// ApiResource is one path segment. A nil Parent means the segment hangs off the API root.
	ApiResource struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		RestApi       *RestApi             `cfn:"RestApiId"`
		Parent        *ApiResource         `cfn:"-"`
		ParentId      core.IaCValue        `cfn:"ParentId"`
		PathPart      string               `cfn:"PathPart"`
	}

	ApiMethod struct {
		Name              string
		ConstructRefs     core.ConstructRefSet `cfn:"-"`
		RestApi           *RestApi             `cfn:"RestApiId"`
		Resource          *ApiResource         `cfn:"-"`
		ResourceId        core.IaCValue        `cfn:"ResourceId"`
		HttpMethod        string               `cfn:"HttpMethod"`
		AuthorizationType string               `cfn:"AuthorizationType"`
		ApiKeyRequired    bool                 `cfn:"ApiKeyRequired"`
		RequestParameters map[string]bool      `cfn:"RequestParameters"`
		RequestValidator  *RequestValidator    `cfn:"RequestValidatorId"`
		Integration       *ApiIntegration      `cfn:"Integration"`
		MethodResponses   []MethodResponse     `cfn:"MethodResponses"`
		Metadata          map[string]any       `cfn:"Metadata,attribute"`
	}

	ApiIntegration struct {
		Type                  string                `cfn:"Type"`
		IntegrationHttpMethod string                `cfn:"IntegrationHttpMethod"`
		Uri                   any                   `cfn:"Uri"`
		Credentials           any                   `cfn:"Credentials"`
		PassthroughBehavior   string                `cfn:"PassthroughBehavior"`
		RequestParameters     map[string]string     `cfn:"RequestParameters"`
		RequestTemplates      map[string]string     `cfn:"RequestTemplates"`
		IntegrationResponses  []IntegrationResponse `cfn:"IntegrationResponses"`
	}

	IntegrationResponse struct {
		StatusCode         string            `cfn:"StatusCode"`
		SelectionPattern   string            `cfn:"SelectionPattern"`
		ResponseParameters map[string]string `cfn:"ResponseParameters"`
		ResponseTemplates  map[string]string `cfn:"ResponseTemplates"`
	}

	MethodResponse struct {
		StatusCode         string          `cfn:"StatusCode"`
		ResponseParameters map[string]bool `cfn:"ResponseParameters"`
	}

	RequestValidator struct {
		Name                      string
		ConstructRefs             core.ConstructRefSet `cfn:"-"`
		RestApi                   *RestApi             `cfn:"RestApiId"`
		ValidatorName             string               `cfn:"Name"`
		ValidateRequestBody       bool                 `cfn:"ValidateRequestBody,always"`
		ValidateRequestParameters bool                 `cfn:"ValidateRequestParameters,always"`
	}

	// ApiDeployment snapshots the API. It must come after every method, otherwise the snapshot can
	// miss them.
	ApiDeployment struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		RestApi       *RestApi             `cfn:"RestApiId"`
		Description   string               `cfn:"Description"`
		Methods       []*ApiMethod         `cfn:"DependsOn,attribute"`
	}

	ApiStage struct {
		Name           string
		ConstructRefs  core.ConstructRefSet `cfn:"-"`
		RestApi        *RestApi             `cfn:"RestApiId"`
		Deployment     *ApiDeployment       `cfn:"DeploymentId"`
		StageName      string               `cfn:"StageName"`
		TracingEnabled bool                 `cfn:"TracingEnabled"`
		MethodSettings []MethodSetting      `cfn:"MethodSettings"`
	}

	MethodSetting struct {
		ResourcePath     string `cfn:"ResourcePath"`
		HttpMethod       string `cfn:"HttpMethod"`
		LoggingLevel     string `cfn:"LoggingLevel"`
		DataTraceEnabled bool   `cfn:"DataTraceEnabled,always"`
		MetricsEnabled   bool   `cfn:"MetricsEnabled"`
	}

	UsagePlan struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		UsagePlanName string               `cfn:"UsagePlanName"`
		ApiStages     []UsagePlanStage     `cfn:"ApiStages"`
	}

	UsagePlanStage struct {
		ApiId *RestApi  `cfn:"ApiId"`
		Stage *ApiStage `cfn:"Stage"`
	}

	ApiKey struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		Enabled       bool                 `cfn:"Enabled,always"`
		Description   string               `cfn:"Description"`
		StageKeys     []ApiKeyStage        `cfn:"StageKeys"`
	}

	// ApiKeyStage binds a key to a deployed stage.
	ApiKeyStage struct {
		RestApi *RestApi  `cfn:"RestApiId"`
		Stage   *ApiStage `cfn:"StageName"`
	}

	UsagePlanKey struct {
		Name          string
		ConstructRefs core.ConstructRefSet `cfn:"-"`
		Key           *ApiKey              `cfn:"KeyId"`
		KeyType       string               `cfn:"KeyType"`
		UsagePlan     *UsagePlan           `cfn:"UsagePlanId"`
	}
)

func NewRestApi(name string, refs core.ConstructRefSet) *RestApi {
	name = aws.RestApiNameSanitizer.Apply(name)
	return &RestApi{Name: name, ConstructRefs: refs, ApiName: name}
}

func (api *RestApi) BaseConstructRefs() core.ConstructRefSet {
	return api.ConstructRefs
}

// Id returns the id of the cloud resource
func (api *RestApi) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     REST_API_TYPE,
		Name:     api.Name,
	}
}

func (api *RestApi) CfnType() string {
	return "AWS::ApiGateway::RestApi"
}

func (api *RestApi) RootResourceId() core.IaCValue {
	return core.AttrOf(api, "RootResourceId")
}

// NewApiResource adds the child pathPart under parent (or the API root when parent is nil).
func NewApiResource(api *RestApi, parent *ApiResource, pathPart string, refs core.ConstructRefSet) *ApiResource {
	res := &ApiResource{
		ConstructRefs: refs,
		RestApi:       api,
		Parent:        parent,
		PathPart:      pathPart,
	}
	if parent == nil {
		res.ParentId = api.RootResourceId()
	} else {
		res.ParentId = core.RefOf(parent)
	}
	res.Name = res.Path()
	return res
}

// Path is the full resource path, eg "/shadow/{thingName}".
func (res *ApiResource) Path() string {
	if res.Parent == nil {
		return "/" + res.PathPart
	}
	return res.Parent.Path() + "/" + res.PathPart
}

func (res *ApiResource) BaseConstructRefs() core.ConstructRefSet {
	return res.ConstructRefs
}

// Id returns the id of the cloud resource
func (res *ApiResource) Id() core.ResourceId {
	return core.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      API_RESOURCE_TYPE,
		Namespace: res.RestApi.Name,
		Name:      res.Name,
	}
}

func (res *ApiResource) CfnType() string {
	return "AWS::ApiGateway::Resource"
}

// NewApiMethod declares httpMethod on res (or on the API root when res is nil).
func NewApiMethod(api *RestApi, res *ApiResource, httpMethod string, refs core.ConstructRefSet) *ApiMethod {
	httpMethod = strings.ToUpper(httpMethod)
	method := &ApiMethod{
		ConstructRefs: refs,
		RestApi:       api,
		Resource:      res,
		HttpMethod:    httpMethod,
	}
	path := "/"
	if res == nil {
		method.ResourceId = api.RootResourceId()
	} else {
		method.ResourceId = core.RefOf(res)
		path = res.Path()
	}
	method.Name = fmt.Sprintf("%s-%s", path, httpMethod)
	return method
}

func (method *ApiMethod) BaseConstructRefs() core.ConstructRefSet {
	return method.ConstructRefs
}

// Id returns the id of the cloud resource
func (method *ApiMethod) Id() core.ResourceId {
	return core.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      API_METHOD_TYPE,
		Namespace: method.RestApi.Name,
		Name:      method.Name,
	}
}

func (method *ApiMethod) CfnType() string {
	return "AWS::ApiGateway::Method"
}

// AddMetadata sets key in the method's template Metadata, replacing any previous value.
func (method *ApiMethod) AddMetadata(key string, value any) {
	if method.Metadata == nil {
		method.Metadata = make(map[string]any)
	}
	method.Metadata[key] = value
}

func NewRequestValidator(api *RestApi, name string, validateBody, validateParameters bool, refs core.ConstructRefSet) *RequestValidator {
	return &RequestValidator{
		Name:                      name,
		ConstructRefs:             refs,
		RestApi:                   api,
		ValidateRequestBody:       validateBody,
		ValidateRequestParameters: validateParameters,
	}
}

func (v *RequestValidator) BaseConstructRefs() core.ConstructRefSet {
	return v.ConstructRefs
}

// Id returns the id of the cloud resource
func (v *RequestValidator) Id() core.ResourceId {
	return core.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      REQUEST_VALIDATOR_TYPE,
		Namespace: v.RestApi.Name,
		Name:      v.Name,
	}
}

func (v *RequestValidator) CfnType() string {
	return "AWS::ApiGateway::RequestValidator"
}

func (d *ApiDeployment) BaseConstructRefs() core.ConstructRefSet {
	return d.ConstructRefs
}

// Id returns the id of the cloud resource
func (d *ApiDeployment) Id() core.ResourceId {
	return core.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      API_DEPLOYMENT_TYPE,
		Namespace: d.RestApi.Name,
		Name:      d.Name,
	}
}

func (d *ApiDeployment) CfnType() string {
	return "AWS::ApiGateway::Deployment"
}

// SnapshotOf is every method of the deployment along with the resources and validators they use.
func (d *ApiDeployment) SnapshotOf() []core.Resource {
	var out []core.Resource
	seen := make(map[core.ResourceId]bool)
	add := func(r core.Resource) {
		if seen[r.Id()] {
			return
		}
		seen[r.Id()] = true
		out = append(out, r)
	}
	for _, m := range d.Methods {
		for res := m.Resource; res != nil; res = res.Parent {
			add(res)
		}
		if m.RequestValidator != nil {
			add(m.RequestValidator)
		}
		add(m)
	}
	return out
}

func (stage *ApiStage) BaseConstructRefs() core.ConstructRefSet {
	return stage.ConstructRefs
}

// Id returns the id of the cloud resource
func (stage *ApiStage) Id() core.ResourceId {
	return core.ResourceId{
		Provider:  AWS_PROVIDER,
		Type:      API_STAGE_TYPE,
		Namespace: stage.RestApi.Name,
		Name:      stage.Name,
	}
}

func (stage *ApiStage) CfnType() string {
	return "AWS::ApiGateway::Stage"
}

// InvokeUrl is the stage's base URL, eg "https://abc.execute-api.us-east-1.amazonaws.com/prod/".
func (stage *ApiStage) InvokeUrl() core.Join {
	return core.Join{Values: []any{
		"https://",
		core.RefOf(stage.RestApi),
		".execute-api.",
		core.Region,
		".",
		core.URLSuffix,
		"/",
		core.RefOf(stage),
		"/",
	}}
}

func (plan *UsagePlan) BaseConstructRefs() core.ConstructRefSet {
	return plan.ConstructRefs
}

// Id returns the id of the cloud resource
func (plan *UsagePlan) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     API_USAGE_PLAN_TYPE,
		Name:     plan.Name,
	}
}

func (plan *UsagePlan) CfnType() string {
	return "AWS::ApiGateway::UsagePlan"
}

func (key *ApiKey) BaseConstructRefs() core.ConstructRefSet {
	return key.ConstructRefs
}

// Id returns the id of the cloud resource
func (key *ApiKey) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     API_KEY_TYPE,
		Name:     key.Name,
	}
}

func (key *ApiKey) CfnType() string {
	return "AWS::ApiGateway::ApiKey"
}

func (k *UsagePlanKey) BaseConstructRefs() core.ConstructRefSet {
	return k.ConstructRefs
}

// Id returns the id of the cloud resource
func (k *UsagePlanKey) Id() core.ResourceId {
	return core.ResourceId{
		Provider: AWS_PROVIDER,
		Type:     API_USAGE_PLAN_KEY_TYPE,
		Name:     k.Name,
	}
}

func (k *UsagePlanKey) CfnType() string {
	return "AWS::ApiGateway::UsagePlanKey"
}
