package deploy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/oide-iot/mcc-infra/pkg/config"
	"github.com/oide-iot/mcc-infra/pkg/core"
	"github.com/oide-iot/mcc-infra/pkg/logging"
	awssanitizer "github.com/oide-iot/mcc-infra/pkg/sanitization/aws"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
)

const (
	changeSetPrefix = "mccinfra-"

	changeSetWait = 5 * time.Minute
	stackWait     = 60 * time.Minute

	// maxTemplateBodySize is the largest template CloudFormation accepts inline; larger ones are
	// read from S3.
	maxTemplateBodySize = 51200
	templatePrefix      = "templates"
)

type (
	// Deployer deploys compiled stacks one after the other through change sets.
	Deployer struct {
		Clients *Clients
		Project config.Project
		Account string
		// Format the templates are uploaded in, "json" or "yaml".
		Format string
		// Progress receives asset upload progress. Nil disables it.
		Progress io.Writer

		// waiterDelay overrides the SDK waiters' minimum delay, for tests.
		waiterDelay time.Duration
	}

	// StackResult is the state of a stack after deployment.
	StackResult struct {
		StackName string
		// Status is empty when the stack had no changes.
		Status  string
		Outputs map[string]string
	}

	stackState struct {
		exists  bool
		status  cfntypes.StackStatus
		outputs map[string]string
	}
)

// AssetBucket is Project.AssetBucket, or `<prefix>-assets-<account>-<region>` sanitized for S3.
func (d *Deployer) AssetBucket() string {
	if d.Project.AssetBucket != "" {
		return d.Project.AssetBucket
	}
	name := awssanitizer.S3BucketSanitizer.Apply(strings.ToLower(d.Project.ProjectPrefix() + "-assets"))
	return fmt.Sprintf("%s-%s-%s", name, d.Account, d.Clients.Region)
}

// Deploy deploys the stacks in the given order, stopping at the first failure.
func (d *Deployer) Deploy(ctx context.Context, compiled []stack.Synthesized) ([]StackResult, error) {
	var results []StackResult
	for _, c := range compiled {
		res, err := d.DeployStack(ctx, c)
		if err != nil {
			return results, core.WrapErrf(err, "could not deploy %s", c.Stack.Name)
		}
		results = append(results, res)
	}
	return results, nil
}

// DeployStack publishes the stack's code assets, creates and executes a change set for the
// template, then publishes the assets that go into buckets the stack owns.
func (d *Deployer) DeployStack(ctx context.Context, c stack.Synthesized) (StackResult, error) {
	ctx = logging.WithStack(ctx, c.Stack.Name)
	log := logging.GetLogger(ctx).Named("deploy").Sugar()
	result := StackResult{StackName: c.Stack.Name}

	bucket := d.AssetBucket()
	bucketReady := false
	ensureBucket := func() error {
		if bucketReady {
			return nil
		}
		if err := EnsureBucket(ctx, d.Clients.S3, bucket, d.Clients.Region); err != nil {
			return err
		}
		bucketReady = true
		return nil
	}

	before, after := splitAssets(c.Stack.Assets)
	params := map[string]string{}
	if len(before) > 0 {
		if err := ensureBucket(); err != nil {
			return result, err
		}
		if err := d.publish(ctx, before, bucket); err != nil {
			return result, err
		}
		params[stack.AssetsBucketParameter] = bucket
	}

	state, err := d.describeStack(ctx, c.Stack.Name)
	if err != nil {
		return result, err
	}
	body, err := c.Template.Marshal(d.Format)
	if err != nil {
		return result, err
	}

	changeSetType := cfntypes.ChangeSetTypeUpdate
	switch {
	case !state.exists, state.status == cfntypes.StackStatusReviewInProgress:
		changeSetType = cfntypes.ChangeSetTypeCreate
	case state.status == cfntypes.StackStatusRollbackComplete:
		return result, errors.Errorf("stack is in %s from a failed create, delete it before deploying again", state.status)
	case strings.HasSuffix(string(state.status), "_IN_PROGRESS"):
		return result, errors.Errorf("stack is busy (%s)", state.status)
	}

	var parameters []cfntypes.Parameter
	for key, value := range params {
		if _, ok := c.Template.Parameters[key]; ok {
			parameters = append(parameters, cfntypes.Parameter{
				ParameterKey:   aws.String(key),
				ParameterValue: aws.String(value),
			})
		}
	}

	changeSetName := changeSetPrefix + uuid.NewString()
	in := &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(c.Stack.Name),
		ChangeSetName: aws.String(changeSetName),
		ChangeSetType: changeSetType,
		Parameters:    parameters,
		Capabilities:  []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
	}
	if c.Stack.Description != "" {
		in.Description = aws.String(c.Stack.Description)
	}
	if len(body) > maxTemplateBodySize {
		if err := ensureBucket(); err != nil {
			return result, err
		}
		url, err := d.uploadTemplate(ctx, bucket, c.Stack.Name, body)
		if err != nil {
			return result, err
		}
		log.Debugf("template is %d bytes, deploying from %s", len(body), url)
		in.TemplateURL = aws.String(url)
	} else {
		in.TemplateBody = aws.String(string(body))
	}
	if _, err = d.Clients.CloudFormation.CreateChangeSet(ctx, in); err != nil {
		return result, errors.Wrap(err, "could not create change set")
	}
	log.Debugf("created %s change set %s", changeSetType, changeSetName)

	changed, err := d.waitForChangeSet(ctx, c.Stack.Name, changeSetName)
	if err != nil {
		return result, err
	}
	if changed {
		_, err = d.Clients.CloudFormation.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
			StackName:     aws.String(c.Stack.Name),
			ChangeSetName: aws.String(changeSetName),
		})
		if err != nil {
			return result, errors.Wrap(err, "could not execute change set")
		}
		log.Infof("deploying (%s)", strings.ToLower(string(changeSetType)))
		if err := d.waitForStack(ctx, c.Stack.Name, changeSetType); err != nil {
			return result, err
		}
		if state, err = d.describeStack(ctx, c.Stack.Name); err != nil {
			return result, err
		}
		result.Status = string(state.status)
		log.Infof("deployed: %s", state.status)
	} else {
		log.Info("no changes")
	}
	result.Outputs = state.outputs

	if len(after) > 0 {
		uploads, err := bindOutputBuckets(after, state.outputs)
		if err != nil {
			return result, err
		}
		if err := d.publishUploads(ctx, uploads); err != nil {
			return result, err
		}
	}
	return result, nil
}

// uploadTemplate puts body in the asset bucket under a content-addressed key and returns the URL
// CloudFormation reads it from.
func (d *Deployer) uploadTemplate(ctx context.Context, bucket, stackName string, body []byte) (string, error) {
	ext := "json"
	if d.Format == "yaml" {
		ext = "yaml"
	}
	sum := sha256.Sum256(body)
	key := fmt.Sprintf("%s/%s-%s.%s", templatePrefix, stackName, hex.EncodeToString(sum[:])[:16], ext)
	_, err := d.Clients.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return "", errors.Wrapf(err, "could not upload template to s3://%s/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, d.Clients.Region, key), nil
}

func (d *Deployer) describeStack(ctx context.Context, name string) (stackState, error) {
	out, err := d.Clients.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if isStackMissing(err) {
		return stackState{}, nil
	}
	if err != nil {
		return stackState{}, errors.Wrapf(err, "could not describe %s", name)
	}
	if len(out.Stacks) == 0 {
		return stackState{}, nil
	}
	s := out.Stacks[0]
	state := stackState{
		exists:  true,
		status:  s.StackStatus,
		outputs: make(map[string]string, len(s.Outputs)),
	}
	for _, o := range s.Outputs {
		state.outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return state, nil
}

// waitForChangeSet returns false (after deleting the change set) when it contains no changes.
func (d *Deployer) waitForChangeSet(ctx context.Context, stackName, changeSetName string) (bool, error) {
	in := &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(stackName),
		ChangeSetName: aws.String(changeSetName),
	}
	waiter := cloudformation.NewChangeSetCreateCompleteWaiter(d.Clients.CloudFormation, func(o *cloudformation.ChangeSetCreateCompleteWaiterOptions) {
		if d.waiterDelay > 0 {
			o.MinDelay = d.waiterDelay
			o.MaxDelay = d.waiterDelay
		}
	})
	waitErr := waiter.Wait(ctx, in, changeSetWait)
	if waitErr == nil {
		return true, nil
	}

	out, err := d.Clients.CloudFormation.DescribeChangeSet(ctx, in)
	if err != nil {
		return false, errors.Wrap(waitErr, "change set did not complete")
	}
	reason := aws.ToString(out.StatusReason)
	if out.Status == cfntypes.ChangeSetStatusFailed && isNoChanges(reason) {
		_, err := d.Clients.CloudFormation.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
			StackName:     aws.String(stackName),
			ChangeSetName: aws.String(changeSetName),
		})
		if err != nil {
			logging.GetLogger(ctx).Sugar().Warnf("could not delete empty change set %s: %v", changeSetName, err)
		}
		return false, nil
	}
	return false, errors.Errorf("change set %s: %s", out.Status, reason)
}

func isNoChanges(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") || strings.Contains(reason, "No updates are to be performed")
}

func (d *Deployer) waitForStack(ctx context.Context, stackName string, changeSetType cfntypes.ChangeSetType) error {
	in := &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)}
	var err error
	if changeSetType == cfntypes.ChangeSetTypeCreate {
		waiter := cloudformation.NewStackCreateCompleteWaiter(d.Clients.CloudFormation, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
			if d.waiterDelay > 0 {
				o.MinDelay = d.waiterDelay
				o.MaxDelay = d.waiterDelay
			}
		})
		err = waiter.Wait(ctx, in, stackWait)
	} else {
		waiter := cloudformation.NewStackUpdateCompleteWaiter(d.Clients.CloudFormation, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
			if d.waiterDelay > 0 {
				o.MinDelay = d.waiterDelay
				o.MaxDelay = d.waiterDelay
			}
		})
		err = waiter.Wait(ctx, in, stackWait)
	}
	if err == nil {
		return nil
	}
	state, descErr := d.describeStack(ctx, stackName)
	if descErr == nil && state.exists {
		return errors.Wrapf(err, "stack ended in %s", state.status)
	}
	return err
}

func (d *Deployer) publish(ctx context.Context, assets []*stack.Asset, bucket string) error {
	uploads := make([]Upload, len(assets))
	for i, a := range assets {
		uploads[i] = Upload{Asset: a, Bucket: bucket}
	}
	return d.publishUploads(ctx, uploads)
}

func (d *Deployer) publishUploads(ctx context.Context, uploads []Upload) error {
	p := &AssetPublisher{S3: d.Clients.S3, Progress: d.Progress}
	return p.Publish(ctx, uploads)
}

func splitAssets(assets []*stack.Asset) (before, after []*stack.Asset) {
	for _, a := range assets {
		if a.Stage == stack.AfterDeploy {
			after = append(after, a)
		} else {
			before = append(before, a)
		}
	}
	return
}

// bindOutputBuckets resolves each asset's bucket from the stack output it names.
func bindOutputBuckets(assets []*stack.Asset, outputs map[string]string) ([]Upload, error) {
	uploads := make([]Upload, 0, len(assets))
	for _, a := range assets {
		bucket, ok := outputs[a.Destination.BucketOutput]
		if !ok || bucket == "" {
			return nil, errors.Errorf("asset %s: stack has no output %q", a.Id, a.Destination.BucketOutput)
		}
		uploads = append(uploads, Upload{Asset: a, Bucket: bucket})
	}
	return uploads, nil
}
