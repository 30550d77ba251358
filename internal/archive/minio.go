// Package archive keeps JSON snapshots of acted-upon approval requests in an
// S3-compatible bucket. Approvals are deleted from the store once merged or
// rejected; the archive is the only place their history survives.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"guidance/api/internal/store"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Service struct {
	client *minio.Client
	bucket string
}

func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Service{client: client, bucket: bucket}, nil
}

// ArchiveApproval writes the approval snapshot under its request name with a
// timestamped object key, so repeated requests with the same name never
// overwrite each other.
func (s *Service) ArchiveApproval(ctx context.Context, a store.Approval) error {
	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal approval: %w", err)
	}

	objectName := fmt.Sprintf("%s/%d.json", a.ApprovalRequestName, time.Now().UnixMilli())
	_, err = s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("archive approval %s: %w", a.ApprovalRequestName, err)
	}
	return nil
}
