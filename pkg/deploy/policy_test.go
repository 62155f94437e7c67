package deploy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	iottypes "github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func policyVersions(n int) []iottypes.PolicyVersion {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var versions []iottypes.PolicyVersion
	// listed newest first, as IoT does
	for i := n; i >= 1; i-- {
		versions = append(versions, iottypes.PolicyVersion{
			VersionId:  aws.String(fmt.Sprint(i)),
			CreateDate: aws.Time(start.Add(time.Duration(i) * time.Hour)),
		})
	}
	return versions
}

func Test_UpdatePolicy(t *testing.T) {
	document := []byte(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"iot:Connect","Resource":"*"}]}`)
	tests := []struct {
		name           string
		versions       int
		defaultVersion string
		wantDeleted    string
	}{
		{name: "room for a version", versions: 2, defaultVersion: "2"},
		{name: "prunes the oldest", versions: 5, defaultVersion: "5", wantDeleted: "1"},
		{name: "keeps the default", versions: 5, defaultVersion: "1", wantDeleted: "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			client := &mockIot{}
			client.On("GetPolicy", mock.Anything, mock.Anything).
				Return(&iot.GetPolicyOutput{DefaultVersionId: aws.String(tt.defaultVersion)}, nil)
			client.On("ListPolicyVersions", mock.Anything, mock.Anything).
				Return(&iot.ListPolicyVersionsOutput{PolicyVersions: policyVersions(tt.versions)}, nil)
			if tt.wantDeleted != "" {
				client.On("DeletePolicyVersion", mock.Anything, mock.MatchedBy(func(in *iot.DeletePolicyVersionInput) bool {
					return aws.ToString(in.PolicyVersionId) == tt.wantDeleted
				})).Return(&iot.DeletePolicyVersionOutput{}, nil)
			}
			client.On("CreatePolicyVersion", mock.Anything, mock.MatchedBy(func(in *iot.CreatePolicyVersionInput) bool {
				return aws.ToString(in.PolicyName) == "GreengrassV2IoTThingPolicy" && aws.ToString(in.PolicyDocument) == string(document)
			})).Return(&iot.CreatePolicyVersionOutput{PolicyVersionId: aws.String("6")}, nil)
			client.On("SetDefaultPolicyVersion", mock.Anything, mock.MatchedBy(func(in *iot.SetDefaultPolicyVersionInput) bool {
				return aws.ToString(in.PolicyVersionId) == "6"
			})).Return(&iot.SetDefaultPolicyVersionOutput{}, nil)

			version, err := UpdatePolicy(context.Background(), client, "GreengrassV2IoTThingPolicy", document)
			if !assert.NoError(err) {
				return
			}
			assert.Equal("6", version)
			client.AssertExpectations(t)
			if tt.wantDeleted == "" {
				client.AssertNotCalled(t, "DeletePolicyVersion", mock.Anything, mock.Anything)
			}
		})
	}
}

func Test_UpdatePolicyInvalidDocument(t *testing.T) {
	client := &mockIot{}
	_, err := UpdatePolicy(context.Background(), client, "p", []byte("{not json"))
	assert.Error(t, err)
	client.AssertNotCalled(t, "GetPolicy", mock.Anything, mock.Anything)
}
