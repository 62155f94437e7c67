package templateutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "fields",
			text: "python3 {{ .Dir }}/{{ .Entry }}",
			data: map[string]string{"Dir": "/opt", "Entry": "main.py"},
			want: "python3 /opt/main.py",
		},
		{
			name: "sprig function",
			text: `{{ .Name | upper }}-{{ default "1.0.0" .Version }}`,
			data: map[string]any{"Name": "comp", "Version": ""},
			want: "COMP-1.0.0",
		},
		{
			name: "json",
			text: `{{ json .V }}`,
			data: map[string]any{"V": map[string]string{"a": "<b>"}},
			want: `{"a":"<b>"}`,
		},
		{
			name: "shellQuote",
			text: `echo {{ shellQuote .S }}`,
			data: map[string]string{"S": "it's"},
			want: `echo 'it'"'"'s'`,
		},
		{
			name:    "missing key",
			text:    "{{ .Nope }}",
			data:    map[string]string{},
			wantErr: true,
		},
		{
			name:    "bad syntax",
			text:    "{{ .Name ",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.name, tt.text, tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
