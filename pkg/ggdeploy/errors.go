package ggdeploy

import (
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2/types"
	"github.com/pkg/errors"
)

func isNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
