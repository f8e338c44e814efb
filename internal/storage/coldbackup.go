package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/poenetwork/node/internal/log"
)

// ColdBackup mirrors chain-state snapshots to S3 on a best-effort basis.
// It is not part of the persisted-serialization contract in spec.md §6;
// a failed upload is logged and otherwise ignored, the same
// logged-and-swallowed policy spec.md §7 applies to the primary blob
// store's own persist failures.
type ColdBackup struct {
	bucket   string
	uploader *s3manager.Uploader
	logger   log.Logger
}

// NewColdBackup builds an uploader against bucket using the default AWS
// credential chain.
func NewColdBackup(bucket string) (*ColdBackup, error) {
	sess, err := session.NewSession(&aws.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: aws session: %w", err)
	}
	return &ColdBackup{
		bucket:   bucket,
		uploader: s3manager.NewUploader(sess),
		logger:   log.NewModuleLogger(log.ModuleStorage).NewWith("bucket", bucket),
	}, nil
}

// Upload mirrors a chain-state snapshot under key. Errors are returned to
// the caller to log; they never gate the primary persist path.
func (c *ColdBackup) Upload(ctx context.Context, key string, value []byte) error {
	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		c.logger.Warn("cold backup upload failed", "key", key, "err", err)
	}
	return err
}
