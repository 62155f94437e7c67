package stack

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oide-iot/mcc-infra/pkg/closenicely"
	mccio "github.com/oide-iot/mcc-infra/pkg/io"
	"github.com/pkg/errors"
)

type (
	Packaging string

	// PublishStage is when an asset must be uploaded relative to its stack's deployment.
	PublishStage string

	// Asset is a local file or directory that deploy uploads to S3.
	Asset struct {
		Id         string `json:"id"`
		SourcePath string `json:"sourcePath"`
		// Include globs (doublestar syntax) select the files of a directory asset.
		Include     []string         `json:"include,omitempty"`
		Packaging   Packaging        `json:"packaging"`
		Hash        string           `json:"hash"`
		Stage       PublishStage     `json:"stage"`
		Destination AssetDestination `json:"destination"`
	}

	AssetDestination struct {
		// BucketOutput is the logical id of the stack output holding the bucket name. Empty means
		// the project asset bucket.
		BucketOutput string `json:"bucketOutput,omitempty"`
		Key          string `json:"key"`
	}

	// assetFile writes an asset's packaged bytes, for synth output.
	assetFile struct {
		asset *Asset
		fpath string
	}
)

const (
	PackagingZip  Packaging = "zip"
	PackagingFile Packaging = "file"

	// BeforeDeploy assets are referenced by the template (eg Lambda code).
	BeforeDeploy PublishStage = "before-deploy"
	// AfterDeploy assets are uploaded into a bucket the stack creates.
	AfterDeploy PublishStage = "after-deploy"
)

// zipModTime is fixed so that an unchanged directory always produces identical archives.
var zipModTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// NewAsset resolves the files of sourcePath and computes the asset hash. The returned asset has no
// destination yet.
func NewAsset(id, sourcePath string, include []string, packaging Packaging) (*Asset, error) {
	a := &Asset{
		Id:         id,
		SourcePath: sourcePath,
		Include:    include,
		Packaging:  packaging,
	}
	hash, err := a.computeHash()
	if err != nil {
		return nil, errors.Wrapf(err, "could not hash asset %s", id)
	}
	a.Hash = hash
	return a, nil
}

// Files lists the asset's files relative to SourcePath, sorted. A file asset lists just its base
// name.
func (a *Asset) Files() ([]string, error) {
	info, err := os.Stat(a.SourcePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Base(a.SourcePath)}, nil
	}
	include := a.Include
	if len(include) == 0 {
		include = []string{"**"}
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid include pattern %q", pattern)
		}
	}
	var files []string
	err = filepath.WalkDir(a.SourcePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(a.SourcePath, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range include {
			// doublestar over path.Match: the std version doesn't support '**'
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, rel)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no files in %s match %v", a.SourcePath, include)
	}
	sort.Strings(files)
	return files, nil
}

func (a *Asset) sourceOf(rel string) string {
	info, err := os.Stat(a.SourcePath)
	if err == nil && !info.IsDir() {
		return a.SourcePath
	}
	return filepath.Join(a.SourcePath, filepath.FromSlash(rel))
}

// computeHash is the SHA-256 over each file's relative path and content, in path order.
func (a *Asset) computeHash() (string, error) {
	files, err := a.Files()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, rel := range files {
		fmt.Fprintf(h, "%s\x00", rel)
		if err := copyFile(h, a.sourceOf(rel)); err != nil {
			return "", err
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteTo writes the packaged asset: a zip archive of the files, or the file itself.
func (a *Asset) WriteTo(w io.Writer) (int64, error) {
	counter := &mccio.CountingWriter{Delegate: w}
	files, err := a.Files()
	if err != nil {
		return 0, err
	}
	if a.Packaging == PackagingFile {
		if len(files) != 1 {
			return 0, errors.Errorf("file asset %s must be a single file", a.Id)
		}
		err := copyFile(counter, a.sourceOf(files[0]))
		return counter.BytesWritten, err
	}

	zw := zip.NewWriter(counter)
	for _, rel := range files {
		src := a.sourceOf(rel)
		info, err := os.Stat(src)
		if err != nil {
			return counter.BytesWritten, err
		}
		header := &zip.FileHeader{
			Name:     path.Clean(rel),
			Method:   zip.Deflate,
			Modified: zipModTime,
		}
		// keep the executable bit; Lambda's `bootstrap` needs it
		header.SetMode(info.Mode().Perm())
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return counter.BytesWritten, err
		}
		if err := copyFile(entry, src); err != nil {
			return counter.BytesWritten, errors.Wrapf(err, "could not add %s to %s", rel, a.Id)
		}
	}
	err = zw.Close()
	return counter.BytesWritten, err
}

// Extension of the packaged asset, including the dot.
func (a *Asset) Extension() string {
	if a.Packaging == PackagingZip {
		return ".zip"
	}
	return filepath.Ext(a.SourcePath)
}

// ContentKey is the hash-addressed key used for assets without a fixed destination.
func (a *Asset) ContentKey() string {
	return "assets/" + a.Hash + a.Extension()
}

func (f *assetFile) Path() string {
	return f.fpath
}

func (f *assetFile) WriteTo(w io.Writer) (int64, error) {
	return f.asset.WriteTo(w)
}

func (f *assetFile) Clone() mccio.File {
	return &assetFile{asset: f.asset, fpath: f.fpath}
}

func copyFile(w io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer closenicely.OrDebug(f)
	_, err = io.Copy(w, f)
	return err
}
