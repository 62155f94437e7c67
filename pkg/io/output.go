package io

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/alitto/pond"
	"github.com/pkg/errors"
)

// OutputTo writes every file under dest, replacing existing content. Files are written
// concurrently; the first failure cancels the files not yet started.
func OutputTo(ctx context.Context, files []File, dest string) error {
	pool := pond.New(runtime.NumCPU(), len(files))
	defer pool.StopAndWait()

	group, ctx := pool.GroupContext(ctx)
	for _, f := range files {
		f := f
		group.Submit(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(f, dest)
		})
	}
	return group.Wait()
}

func writeFile(f File, dest string) error {
	path := filepath.Join(dest, f.Path())
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return errors.Wrapf(err, "could not create directory for %s", f.Path())
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", path)
	}
	_, err = f.WriteTo(file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrapf(err, "could not write %s", path)
}
