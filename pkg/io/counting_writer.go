package io

import "io"

// CountingWriter tallies what passes through to Delegate, for writers (such as archive/zip) that
// don't report a total themselves.
type CountingWriter struct {
	Delegate     io.Writer
	BytesWritten int64
}

func (w *CountingWriter) Write(p []byte) (int, error) {
	n, err := w.Delegate.Write(p)
	w.BytesWritten += int64(n)
	return n, err
}
