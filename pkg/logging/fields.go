package logging

import (
	"github.com/oide-iot/mcc-infra/pkg/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type resourceField struct {
	r core.Resource
}

func (field resourceField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	id := field.r.Id()
	enc.AddString("id", id.String())
	if cfn, ok := field.r.(core.CfnResource); ok {
		enc.AddString("type", cfn.CfnType())
	}
	if refs := field.r.BaseConstructRefs(); len(refs) > 0 {
		return enc.AddArray("constructs", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
			for _, ref := range refs.Sorted(func(a, b string) bool { return a < b }) {
				ae.AppendString(ref)
			}
			return nil
		}))
	}
	return nil
}

func ResourceField(r core.Resource) zap.Field {
	return zap.Object("resource", resourceField{r: r})
}

type postLogMessage struct {
	Message string
}

func (field postLogMessage) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("post-msg", field.Message)
	return nil
}

// PostLogMessageField attaches a follow-up hint (eg "run `mccinfra diff` to inspect") to an entry.
func PostLogMessageField(msg string) zap.Field {
	return zap.Inline(postLogMessage{Message: msg})
}

// DescribeFields is intended for unit testing expected log lines: it returns each object field
// encoded as a map, keyed by the field key. Expected keys that are absent map to nil.
func DescribeFields(fields []zapcore.Field, expected ...string) map[string]any {
	all := map[string]any{}
	for _, expect := range expected {
		all[expect] = nil
	}
	for _, field := range fields {
		marshaler, ok := field.Interface.(zapcore.ObjectMarshaler)
		if !ok {
			continue
		}
		enc := zapcore.NewMapObjectEncoder()
		if err := marshaler.MarshalLogObject(enc); err != nil {
			all[field.Key] = err
			continue
		}
		all[field.Key] = enc.Fields
	}
	return all
}
