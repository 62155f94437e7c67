package closenicely

import (
	"io"

	"go.uber.org/zap"
)

// OrDebug closes closer for use in a defer, where the outcome has already been decided and a close
// failure is only worth a debug line.
func OrDebug(closer io.Closer) {
	FuncOrDebug(closer.Close)
}

func FuncOrDebug(closer func() error) {
	if err := closer(); err != nil {
		zap.L().Debug("Failed to close resource", zap.Error(err))
	}
}

// OrWarn is OrDebug for closes that flush data (archives, uploads) where a failure means the
// output is incomplete.
func OrWarn(closer io.Closer, what string) {
	if err := closer.Close(); err != nil {
		zap.L().Warn("Failed to close "+what, zap.Error(err))
	}
}
