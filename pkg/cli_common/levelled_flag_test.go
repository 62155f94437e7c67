package clicommon

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelledFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want LevelledFlag
	}{
		{name: "unset", args: nil, want: 0},
		{name: "once", args: []string{"-v"}, want: 1},
		{name: "twice", args: []string{"-vv"}, want: 2},
		{name: "repeated", args: []string{"-v", "-v", "-v"}, want: 3},
		{name: "explicit level", args: []string{"--verbose=2"}, want: 2},
		{name: "explicit false", args: []string{"-vv", "--verbose=false"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg CommonConfig
			root := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
			SetupRoot(root, &cfg)
			require.NoError(t, root.ParseFlags(tt.args))
			assert.Equal(t, tt.want, cfg.Verbose)
		})
	}
}

func TestAddFormatFlag(t *testing.T) {
	var format string
	cmd := &cobra.Command{Use: "test"}
	AddFormatFlag(cmd.Flags(), &format)

	require.NoError(t, cmd.ParseFlags([]string{"-f", "yaml"}))
	assert.Equal(t, "yaml", format)
}
