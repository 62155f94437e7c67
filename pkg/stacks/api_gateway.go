package stacks

import (
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/constructs/apigwiot"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/stack"
)

type ApiGatewayDeploymentStack struct {
	*stack.Stack
	Api *apigwiot.ApiGatewayToIot
}

func NewApiGatewayDeploymentStack(app *stack.App, cfg *config.ApiGatewayConfig) (*ApiGatewayDeploymentStack, error) {
	s := &ApiGatewayDeploymentStack{
		Stack: app.NewStack(config.ApiGatewaySection, cfg.Name, "REST API proxying to IoT Core"),
	}
	createApiKey := cfg.CreateApiKey == nil || *cfg.CreateApiKey

	var err error
	s.Api, err = apigwiot.NewApiGatewayToIot(s.Graph, "ApiGatewayToIotPattern", apigwiot.Props{
		IotEndpoint:     cfg.IotEndpointAddress,
		CreateApiKey:    createApiKey,
		ApiGatewayProps: cfg.ApiGatewayProps,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.AddOutput("ApiUrl", "Invoke URL of the IoT proxy API", s.Api.Url()); err != nil {
		return nil, err
	}
	if _, err := s.AddOutput("RestApiId", "", core.RefOf(s.Api.Api)); err != nil {
		return nil, err
	}
	if s.Api.ApiKey != nil {
		if _, err := s.AddOutput("ApiKeyId", "Retrieve the value with `aws apigateway get-api-key --include-value`", core.RefOf(s.Api.ApiKey)); err != nil {
			return nil, err
		}
	}
	return s, nil
}
