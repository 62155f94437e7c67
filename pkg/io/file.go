package io

import (
	"io"
	"os"

	"github.com/oide-iot/mcc-infra/pkg/closenicely"
)

type (
	File interface {
		Path() string
		WriteTo(io.Writer) (int64, error)
		Clone() File
	}

	// RawFile represents a file with its included `Content`, such as a rendered template.
	RawFile struct {
		FPath   string
		Content []byte
	}

	// FileRef is a lightweight representation of a file on disk, deferring reading its contents
	// until `WriteTo` is called.
	FileRef struct {
		FPath      string
		SourcePath string
	}
)

func (r *RawFile) Clone() File {
	nf := &RawFile{
		FPath: r.FPath,
	}
	nf.Content = make([]byte, len(r.Content))
	copy(nf.Content, r.Content)
	return nf
}

func (r *RawFile) Path() string {
	return r.FPath
}

func (r *RawFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Content)
	return int64(n), err
}

func (r *FileRef) Clone() File {
	return &FileRef{FPath: r.FPath, SourcePath: r.SourcePath}
}

func (r *FileRef) Path() string {
	return r.FPath
}

func (r *FileRef) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(r.SourcePath)
	if err != nil {
		return 0, err
	}
	defer closenicely.OrDebug(f)
	return io.Copy(w, f)
}
