package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wingedflyer/backend/internal/models"
	"github.com/wingedflyer/backend/pkg/queue"
)

// EventStore is the event persistence the uploader needs.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	SetQRKey(ctx context.Context, id uuid.UUID, key string) error
}

// ArtifactReader reads locally persisted QR PNGs.
type ArtifactReader interface {
	Read(eventID string) ([]byte, error)
}

// Mirror uploads QR artifacts to object storage.
type Mirror interface {
	UploadQR(ctx context.Context, eventID string, png []byte) (string, error)
}

// JobSource dequeues and retries jobs.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// QRUploader processes QR upload jobs: read the local artifact, mirror it to
// S3, record the object key on the event.
type QRUploader struct {
	repo      EventStore
	artifacts ArtifactReader
	s3        Mirror
	queue     JobSource
	logger    *zap.Logger
}

// NewQRUploader creates a QR artifact upload processor.
func NewQRUploader(repo EventStore, artifacts ArtifactReader, s3 Mirror, q JobSource, logger *zap.Logger) *QRUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRUploader{repo: repo, artifacts: artifacts, s3: s3, queue: q, logger: logger}
}

// Process executes one QR upload job.
func (p *QRUploader) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeQRUpload {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.QRUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	e, err := p.repo.GetByID(ctx, payload.EventID)
	if err != nil {
		// Event deleted before the mirror ran; nothing to do.
		p.logger.Info("event gone, skipping qr upload", zap.String("event_id", payload.EventID.String()))
		return nil
	}
	if e.QRKey != "" {
		p.logger.Info("qr already mirrored", zap.String("event_id", e.ID.String()))
		return nil
	}

	png, err := p.artifacts.Read(e.ID.String())
	if err != nil {
		return fmt.Errorf("read local artifact: %w", err)
	}

	key, err := p.s3.UploadQR(ctx, e.ID.String(), png)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.repo.SetQRKey(ctx, e.ID, key); err != nil {
		return fmt.Errorf("update qr key: %w", err)
	}

	p.logger.Info("qr artifact mirrored", zap.String("event_id", e.ID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *QRUploader) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("qr upload worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			// BLPop surfaces ctx cancellation as an error; don't back off
			// on the way out.
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.backoff(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.backoff(ctx)
			continue
		}
	}
}

// backoff sleeps RetryBackoff but returns as soon as ctx is cancelled.
func (p *QRUploader) backoff(ctx context.Context) {
	t := time.NewTimer(queue.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
