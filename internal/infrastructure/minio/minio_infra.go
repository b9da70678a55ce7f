package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ktrack/pricecore/internal/repository/minio"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

// ReportArchiver writes a generated DealReport's structured payload to
// object storage and tracks background cleanup of a payload whose
// report row could not be saved.
type ReportArchiver struct {
	blobRepo    *minio.ReportBlobRepo
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
}

func NewReportArchiver(blobRepo *minio.ReportBlobRepo, log logger.Logger, shutdownCtx context.Context) *ReportArchiver {
	return &ReportArchiver{blobRepo: blobRepo, logger: log, shutdownCtx: shutdownCtx}
}

// ArchivePayload marshals the payload and uploads it under a key scoped
// to the report ID, returning the object key for DealReport.PayloadRef.
func (a *ReportArchiver) ArchivePayload(ctx context.Context, reportID uuid.UUID, payload any) (string, error) {
	const op = "ReportArchiver.ArchivePayload"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	objectKey := fmt.Sprintf("deal-reports/%s.json", reportID)
	key, err := a.blobRepo.Upload(ctx, objectKey, body)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return key, nil
}

// CleanupDiscarded removes an archived payload in the background with
// exponential backoff, used when saving the report row fails after its
// payload was archived.
func (a *ReportArchiver) CleanupDiscarded(objectKey string) {
	a.wg.Add(1)
	go a.cleanupWithRetry(objectKey)
}

func (a *ReportArchiver) cleanupWithRetry(objectKey string) {
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(a.shutdownCtx, 30*time.Second)
	defer cancel()

	backoff := time.Second
	for attempt := 0; attempt < 3; attempt++ {
		if err := a.blobRepo.Delete(ctx, objectKey); err == nil {
			return
		}

		select {
		case <-ctx.Done():
			a.logger.Warnf("report cleanup interrupted by shutdown, key=%s", objectKey)
			return
		default:
		}

		if attempt < 2 {
			jitter := time.Duration(time.Now().UnixNano() % int64(time.Second))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				a.logger.Warnf("report cleanup interrupted by shutdown during backoff, key=%s", objectKey)
				return
			}
			backoff *= 2
		}
	}
	a.logger.Warnf("report cleanup failed after 3 attempts, key=%s", objectKey)
}

// WaitForCleanup blocks until every background cleanup finishes or the
// shutdown timeout context expires, whichever comes first.
func (a *ReportArchiver) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("report cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
