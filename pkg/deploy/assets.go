package deploy

import (
	"bytes"
	"context"
	"io"

	"github.com/alitto/pond"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oide-iot/mcc-infra/pkg/stack"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// assetHashMetadata is the object metadata key holding the asset hash. Objects whose hash matches
// are not uploaded again.
const assetHashMetadata = "asset-hash"

type (
	// Upload is one asset bound to the bucket it goes to.
	Upload struct {
		Asset  *stack.Asset
		Bucket string
	}

	AssetPublisher struct {
		S3 S3API
		// Workers bounds the concurrent uploads.
		Workers int
		// Progress receives the progress bar. Nil disables it.
		Progress io.Writer
	}
)

// EnsureBucket creates the bucket in region unless it already exists.
func EnsureBucket(ctx context.Context, client S3API, bucket, region string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return errors.Wrapf(err, "could not check bucket %s", bucket)
	}
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint
	if region != "us-east-1" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}
	if _, err := client.CreateBucket(ctx, in); err != nil {
		return errors.Wrapf(err, "could not create bucket %s", bucket)
	}
	zap.S().Infof("created asset bucket %s", bucket)
	return nil
}

// Publish uploads every asset whose object is missing or holds a different hash. All uploads are
// attempted; the first error is returned.
func (p *AssetPublisher) Publish(ctx context.Context, uploads []Upload) error {
	if len(uploads) == 0 {
		return nil
	}
	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}
	pool := pond.New(workers, len(uploads), pond.Strategy(pond.Lazy()))
	defer pool.StopAndWait()

	var bar *progressbar.ProgressBar
	if p.Progress != nil {
		bar = progressbar.NewOptions(len(uploads),
			progressbar.OptionSetWriter(p.Progress),
			progressbar.OptionSetDescription("publishing assets"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	group, ctx := pool.GroupContext(ctx)
	for _, u := range uploads {
		u := u
		group.Submit(func() error {
			err := p.publish(ctx, u)
			if bar != nil {
				_ = bar.Add(1)
			}
			return err
		})
	}
	err := group.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	return err
}

func (p *AssetPublisher) publish(ctx context.Context, u Upload) error {
	log := zap.S().Named("assets").With("asset", u.Asset.Id)
	key := u.Asset.Destination.Key

	head, err := p.S3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil && head.Metadata[assetHashMetadata] == u.Asset.Hash:
		log.Debugf("s3://%s/%s is up to date", u.Bucket, key)
		return nil
	case err != nil && !isNotFound(err):
		return errors.Wrapf(err, "could not check s3://%s/%s", u.Bucket, key)
	}

	buf := new(bytes.Buffer)
	if _, err := u.Asset.WriteTo(buf); err != nil {
		return errors.Wrapf(err, "could not package asset %s", u.Asset.Id)
	}
	_, err = p.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(u.Bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(buf.Bytes()),
		Metadata: map[string]string{assetHashMetadata: u.Asset.Hash},
	})
	if err != nil {
		return errors.Wrapf(err, "could not upload asset %s", u.Asset.Id)
	}
	log.Infof("uploaded s3://%s/%s (%d bytes)", u.Bucket, key, buf.Len())
	return nil
}
