package stack

import (
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/logging"
	"github.com/oide-iot/mcc-infra/pkg/provider/aws/resources"
	"github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AssetsBucketParameter is the template parameter through which deploy passes the project asset
// bucket to stacks that reference code assets.
const AssetsBucketParameter = "AssetsBucket"

// Stack is one deployable template. Resources are added to Graph and rendered at synth.
type Stack struct {
	// ConfigName is the stack's section under `Stack` in the app config.
	ConfigName    string
	Name          string
	Description   string
	ProjectPrefix string
	Config        config.AppConfig
	Graph         *core.ResourceGraph
	Assets        []*Asset

	produces  []string
	consumes  []string
	dependsOn []string
	log       *zap.SugaredLogger
}

// Refs is the construct ref set for resources declared directly by the stack.
func (s *Stack) Refs(path ...string) core.ConstructRefSet {
	if len(path) == 0 {
		return core.ConstructRefsOf(s.ConfigName)
	}
	refs := core.ConstructRefSet{}
	for _, p := range path {
		refs.Add(s.ConfigName + "/" + p)
	}
	return refs
}

// Add puts resources into the stack along with everything they reference.
func (s *Stack) Add(rs ...core.Resource) error {
	for _, r := range rs {
		if err := s.Graph.AddDependenciesReflectDeep(r); err != nil {
			return err
		}
		s.log.Desugar().Debug("added resource", logging.ResourceField(r))
	}
	return nil
}

// PutParameter publishes value as the SSM String parameter `/<prefix>/<key>` for other stacks.
func (s *Stack) PutParameter(key string, value any) (*resources.SsmParameter, error) {
	param := resources.NewSsmParameter(s.ProjectPrefix, key, value, s.Refs())
	if existing := s.Graph.GetResource(param.Id()); existing != nil {
		return nil, errors.Errorf("parameter %s is already put by %s", key, s.Name)
	}
	if err := s.Add(param); err != nil {
		return nil, err
	}
	s.produces = append(s.produces, key)
	s.log.Debugf("put parameter %s", param.ParameterName)
	return param, nil
}

// GetParameter reads a parameter another stack put. The value resolves at deploy time, so the
// producing stack is deployed first.
func (s *Stack) GetParameter(key string) core.IaCValue {
	param := resources.NewSsmParameterValue(s.ProjectPrefix, key, s.Refs())
	if s.Graph.GetResource(param.Id()) == nil {
		s.Graph.AddResource(param)
		s.consumes = append(s.consumes, key)
	}
	return core.RefOf(s.Graph.GetResource(param.Id()))
}

// AddOutput declares a stack output exported as `<stack name>-<name>`.
func (s *Stack) AddOutput(name, description string, value any) (*resources.StackOutput, error) {
	out := &resources.StackOutput{
		Name:          name,
		ConstructRefs: s.Refs(),
		Value:         value,
		Description:   description,
		ExportName:    s.Name + "-" + name,
	}
	if existing := s.Graph.GetResource(out.Id()); existing != nil {
		return nil, errors.Errorf("output %s already exists in %s", name, s.Name)
	}
	return out, s.Add(out)
}

// Log is the stack's named logger.
func (s *Stack) Log() *zap.SugaredLogger {
	return s.log
}

// DependsOn orders this stack after the stack configured under configName, for dependencies not
// expressed through parameters.
func (s *Stack) DependsOn(configName string) {
	s.dependsOn = append(s.dependsOn, configName)
}

func (s *Stack) assetsBucket() *resources.StackParameter {
	param := &resources.StackParameter{
		Name:        AssetsBucketParameter,
		Description: "Bucket holding the stack's code assets",
	}
	if existing := s.Graph.GetResource(param.Id()); existing != nil {
		return existing.(*resources.StackParameter)
	}
	s.Graph.AddResource(param)
	return param
}

// AddCodeAsset packages dir as a zip asset in the project asset bucket and returns the Lambda code
// pointing at it.
func (s *Stack) AddCodeAsset(id, dir string) (resources.LambdaCode, error) {
	asset, err := NewAsset(s.Name+"/"+id, dir, nil, PackagingZip)
	if err != nil {
		return resources.LambdaCode{}, err
	}
	asset.Stage = BeforeDeploy
	asset.Destination = AssetDestination{Key: asset.ContentKey()}
	s.Assets = append(s.Assets, asset)
	return resources.LambdaCode{
		S3Bucket: core.RefOf(s.assetsBucket()),
		S3Key:    asset.Destination.Key,
	}, nil
}

// AddBucketAsset uploads a packaged asset to key in the bucket named by the output bucketOutput,
// once the stack is deployed.
func (s *Stack) AddBucketAsset(asset *Asset, bucketOutput *resources.StackOutput, key string) {
	asset.Stage = AfterDeploy
	asset.Destination = AssetDestination{
		BucketOutput: bucketOutput.LogicalId(),
		Key:          key,
	}
	s.Assets = append(s.Assets, asset)
}

// stackName is `<prefix>-<name>`, sanitized for CloudFormation.
func stackName(prefix, name string) string {
	return aws.StackNameSanitizer.Apply(prefix + "-" + name)
}
