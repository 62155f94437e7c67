package deploy

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	iottypes "github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxPolicyVersions is how many versions IoT keeps per policy.
const maxPolicyVersions = 5

// UpdatePolicy makes document the default version of the IoT policy. When the policy already holds
// the maximum number of versions, the oldest non-default version is deleted first.
func UpdatePolicy(ctx context.Context, client IotAPI, policyName string, document []byte) (string, error) {
	if !json.Valid(document) {
		return "", errors.New("policy document is not valid JSON")
	}
	log := zap.S().Named("policy")

	policy, err := client.GetPolicy(ctx, &iot.GetPolicyInput{PolicyName: aws.String(policyName)})
	if err != nil {
		return "", errors.Wrapf(err, "could not get policy %s", policyName)
	}
	defaultVersion := aws.ToString(policy.DefaultVersionId)

	versions, err := client.ListPolicyVersions(ctx, &iot.ListPolicyVersionsInput{PolicyName: aws.String(policyName)})
	if err != nil {
		return "", errors.Wrapf(err, "could not list versions of %s", policyName)
	}
	if len(versions.PolicyVersions) >= maxPolicyVersions {
		oldest := oldestVersion(versions.PolicyVersions, defaultVersion)
		if oldest == "" {
			return "", errors.Errorf("policy %s has no version that can be deleted", policyName)
		}
		_, err := client.DeletePolicyVersion(ctx, &iot.DeletePolicyVersionInput{
			PolicyName:      aws.String(policyName),
			PolicyVersionId: aws.String(oldest),
		})
		if err != nil {
			return "", errors.Wrapf(err, "could not delete version %s of %s", oldest, policyName)
		}
		log.Infof("deleted version %s of %s", oldest, policyName)
	}

	created, err := client.CreatePolicyVersion(ctx, &iot.CreatePolicyVersionInput{
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(string(document)),
	})
	if err != nil {
		return "", errors.Wrapf(err, "could not create a version of %s", policyName)
	}
	version := aws.ToString(created.PolicyVersionId)

	_, err = client.SetDefaultPolicyVersion(ctx, &iot.SetDefaultPolicyVersionInput{
		PolicyName:      aws.String(policyName),
		PolicyVersionId: aws.String(version),
	})
	if err != nil {
		return version, errors.Wrapf(err, "could not make version %s the default of %s", version, policyName)
	}
	log.Infof("%s default version is now %s (was %s)", policyName, version, defaultVersion)
	return version, nil
}

// oldestVersion is the earliest created version other than the default one.
func oldestVersion(versions []iottypes.PolicyVersion, defaultVersion string) string {
	candidates := make([]iottypes.PolicyVersion, 0, len(versions))
	for _, v := range versions {
		if aws.ToString(v.VersionId) != defaultVersion {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return aws.ToTime(candidates[i].CreateDate).Before(aws.ToTime(candidates[j].CreateDate))
	})
	return aws.ToString(candidates[0].VersionId)
}
