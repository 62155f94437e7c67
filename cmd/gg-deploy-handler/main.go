package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"
	"github.com/oide-iot/mcc-infra/pkg/ggdeploy"
	"github.com/oide-iot/mcc-infra/pkg/logging"
	"go.uber.org/zap"
)

var handler cfn.CustomResourceLambdaFunction

func init() {
	zap.ReplaceGlobals(logging.NewLambdaLogger())

	// the client is created once and reused across invocations
	var h *ggdeploy.Handler
	handler = cfn.LambdaWrap(func(ctx context.Context, event cfn.Event) (string, map[string]any, error) {
		if h == nil {
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return event.PhysicalResourceID, nil, err
			}
			h = ggdeploy.NewHandler(greengrassv2.NewFromConfig(cfg))
		}
		return h.Handle(ctx, event)
	})
}

func main() {
	defer zap.L().Sync() //nolint:errcheck
	lambda.Start(handler)
}
