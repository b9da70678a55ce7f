package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/jimlawless/whereami"
	"github.com/ktrack/pricecore/internal/cfg"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/minio/minio-go/v7"
)

// ReportBlobRepo stores the structured payload of a generated DealReport
// as an object, keyed by report ID; DealReport.PayloadRef holds the
// returned object key.
type ReportBlobRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewReportBlobRepo(mc *minio.Client, minioCfg *cfg.MinIOCfg) *ReportBlobRepo {
	return &ReportBlobRepo{mc: mc, cfg: minioCfg}
}

// Upload writes a report payload under the given object key.
func (r *ReportBlobRepo) Upload(ctx context.Context, objectKey string, payload []byte) (string, error) {
	reader := bytes.NewReader(payload)

	info, err := r.mc.PutObject(ctx, r.cfg.BucketName, objectKey, reader, int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Download retrieves a previously archived report payload.
func (r *ReportBlobRepo) Download(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := r.mc.GetObject(ctx, r.cfg.BucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return data, nil
}

// Delete removes an archived report payload, e.g. once a retention
// policy decides it is no longer needed.
func (r *ReportBlobRepo) Delete(ctx context.Context, objectKey string) error {
	if err := r.mc.RemoveObject(ctx, r.cfg.BucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
