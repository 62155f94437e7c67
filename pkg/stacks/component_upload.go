package stacks

import (
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/constructs/greengrass"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
)

// ComponentUploadStack owns the bucket Greengrass downloads component artifacts from, and publishes
// each configured component's source there once the bucket exists.
type ComponentUploadStack struct {
	*stack.Stack
	Bucket       *resources.S3Bucket
	BucketOutput *resources.StackOutput
}

func NewComponentUploadStack(app *stack.App, cfg *config.ComponentUploadConfig) (*ComponentUploadStack, error) {
	s := &ComponentUploadStack{
		Stack: app.NewStack(config.ComponentUploadSection, cfg.Name, "Greengrass component artifact bucket"),
	}

	s.Bucket = resources.NewPrivateBucket("gg-comp-upload-bucket", s.Refs("Bucket"))
	if err := s.Add(s.Bucket); err != nil {
		return nil, err
	}
	if _, err := s.PutParameter(UploadBucketNameParameter, s.Bucket.BucketNameRef()); err != nil {
		return nil, err
	}

	var err error
	s.BucketOutput, err = s.AddOutput("UploadBucketName", "Bucket holding Greengrass component artifacts", s.Bucket.BucketNameRef())
	if err != nil {
		return nil, err
	}

	for _, comp := range cfg.Components {
		name := greengrass.ComponentName(s.ProjectPrefix, comp.Name)
		asset, err := stack.NewAsset(name+"/"+comp.Version, comp.SourceDir, comp.Include, stack.PackagingZip)
		if err != nil {
			return nil, errors.Wrapf(err, "component %s", comp.Name)
		}
		s.AddBucketAsset(asset, s.BucketOutput, greengrass.ArtifactKey(cfg.BucketPrefix, name, comp.Version))
		s.Log().Debugf("component %s %s from %s", name, comp.Version, comp.SourceDir)
	}
	return s, nil
}
