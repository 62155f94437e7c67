package apigwiot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ConsolidateProps(t *testing.T) {
	tests := []struct {
		name     string
		defaults map[string]any
		layers   []map[string]any
		want     map[string]any
	}{
		{
			name:     "no layers",
			defaults: map[string]any{"a": 1},
			want:     map[string]any{"a": 1},
		},
		{
			name:     "later layers win",
			defaults: map[string]any{"a": 1, "b": "x"},
			layers:   []map[string]any{{"a": 2}, {"a": 3}},
			want:     map[string]any{"a": 3, "b": "x"},
		},
		{
			name:     "nested maps merge",
			defaults: map[string]any{"opts": map[string]any{"authorizationType": "AWS_IAM"}},
			layers:   []map[string]any{{"opts": map[string]any{"apiKeyRequired": true}}},
			want:     map[string]any{"opts": map[string]any{"authorizationType": "AWS_IAM", "apiKeyRequired": true}},
		},
		{
			name:     "arrays are replaced",
			defaults: map[string]any{"types": []any{"EDGE", "PRIVATE"}},
			layers:   []map[string]any{{"types": []string{"REGIONAL"}}},
			want:     map[string]any{"types": []any{"REGIONAL"}},
		},
		{
			name:     "false overrides true",
			defaults: map[string]any{"cloudWatchRole": true},
			layers:   []map[string]any{{"cloudWatchRole": false}},
			want:     map[string]any{"cloudWatchRole": false},
		},
		{
			name:     "typed maps are normalized",
			defaults: map[string]any{"params": map[string]any{"a": true}},
			layers:   []map[string]any{{"params": map[string]bool{"b": true}}},
			want:     map[string]any{"params": map[string]any{"a": true, "b": true}},
		},
		{
			name:     "nil layer",
			defaults: map[string]any{"a": 1},
			layers:   []map[string]any{nil},
			want:     map[string]any{"a": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConsolidateProps(tt.defaults, tt.layers...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_ConsolidatePropsLeavesInputs(t *testing.T) {
	defaults := DefaultRestApiProps()
	client := map[string]any{"deployOptions": map[string]any{"loggingLevel": "ERROR"}}

	got, err := ConsolidateProps(defaults, client)
	require.NoError(t, err)

	assert.Equal(t, "ERROR", got["deployOptions"].(map[string]any)["loggingLevel"])
	assert.Equal(t, true, got["deployOptions"].(map[string]any)["tracingEnabled"])
	assert.Equal(t, DefaultRestApiProps(), defaults)
	assert.Equal(t, map[string]any{"deployOptions": map[string]any{"loggingLevel": "ERROR"}}, client)
}

func Test_DecodeRestApiProps(t *testing.T) {
	var props RestApiProps
	require.NoError(t, decodeProps(DefaultRestApiProps(), &props))
	assert.Equal(t, RestApiProps{
		RestApiName:           DefaultRestApiName,
		EndpointConfiguration: EndpointConfiguration{Types: []string{EndpointTypeEdge}},
		DeployOptions: DeployOptions{
			StageName:      DefaultStageName,
			LoggingLevel:   LoggingLevelInfo,
			TracingEnabled: true,
		},
		DefaultMethodOptions: MethodOptions{AuthorizationType: AuthorizationTypeIAM},
	}, props)

	err := decodeProps(map[string]any{"deployOptions": "not a map"}, &props)
	assert.Error(t, err)
}
