package logging

import (
	"testing"

	"github.com/oide-iot/mcc-infra/pkg/core/coretesting"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevels(t *testing.T) {
	assert.Equal(t,
		map[string]zapcore.Level{"deploy": zapcore.DebugLevel, "cfn": zapcore.WarnLevel},
		ParseLevels("deploy=debug, cfn=warn,bogus,x=notalevel"),
	)
}

func TestEntryLeveller(t *testing.T) {
	tests := []struct {
		name   string
		logger string
		level  zapcore.Level
		want   bool
	}{
		{name: "exact module", logger: "deploy", level: zapcore.DebugLevel, want: true},
		{name: "child inherits", logger: "deploy.assets", level: zapcore.DebugLevel, want: true},
		{name: "more specific wins", logger: "deploy.noisy", level: zapcore.InfoLevel, want: false},
		{name: "root level", logger: "synth", level: zapcore.InfoLevel, want: false},
		{name: "root allows warn", logger: "synth", level: zapcore.WarnLevel, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, logs := observer.New(zapcore.DebugLevel)
			core := NewEntryLeveller(obs, map[string]zapcore.Level{
				"":             zapcore.WarnLevel,
				"deploy":       zapcore.DebugLevel,
				"deploy.noisy": zapcore.ErrorLevel,
			})
			logger := zap.New(core).Named(tt.logger)
			if ce := logger.Check(tt.level, "msg"); ce != nil {
				ce.Write()
			}
			assert.Equal(t, tt.want, logs.Len() == 1)
		})
	}
}

func TestResourceField(t *testing.T) {
	r := &coretesting.DummyResource{Name: "a"}
	fields := DescribeFields([]zapcore.Field{ResourceField(r)}, "resource", "missing")
	assert.Equal(t, map[string]any{"id": "test:dummy:a", "constructs": []any{"test"}}, fields["resource"])
	assert.Nil(t, fields["missing"])
}
