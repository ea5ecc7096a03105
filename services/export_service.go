package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
)

const exportPageSize = 500

// ObjectStore is where finished exports are uploaded.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// MovementLister pages through the movement audit log.
type MovementLister interface {
	ListMovements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, int64, error)
}

// MovementExporter writes the movement log as CSV to object storage.
type MovementExporter struct {
	movements MovementLister
	store     ObjectStore
	bucket    string
	prefix    string
	linkTTL   time.Duration
	logger    *zap.Logger
}

func NewMovementExporter(movements MovementLister, store ObjectStore, bucket, prefix string, linkTTL time.Duration, logger *zap.Logger) *MovementExporter {
	return &MovementExporter{
		movements: movements,
		store:     store,
		bucket:    bucket,
		prefix:    prefix,
		linkTTL:   linkTTL,
		logger:    logger,
	}
}

var movementCSVHeader = []string{"id", "stock_id", "type", "quantity", "reason", "created_by_user_id", "created_at"}

// Export uploads every movement matching productID and locationID (nil
// matches any) and returns a download link.
func (e *MovementExporter) Export(ctx context.Context, productID, locationID *uint) (*models.MovementExport, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(movementCSVHeader); err != nil {
		return nil, err
	}

	// walk backwards from the newest id; rows appended meanwhile are newer
	// than the first page and never shift later pages
	rows := 0
	var before *uint
	for {
		batch, _, err := e.movements.ListMovements(ctx, repository.MovementFilter{
			ProductID:  productID,
			LocationID: locationID,
			BeforeID:   before,
			Limit:      exportPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read movements: %w", err)
		}
		for _, m := range batch {
			if err := w.Write(movementRecord(m)); err != nil {
				return nil, err
			}
		}
		rows += len(batch)
		if len(batch) < exportPageSize {
			break
		}
		last := batch[len(batch)-1].ID
		before = &last
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%smovements/%s/%s.csv", e.prefix, time.Now().UTC().Format("2006-01-02"), uuid.NewString())
	if err := e.store.PutObject(ctx, e.bucket, key, buf.Bytes(), "text/csv"); err != nil {
		e.logger.Error("Failed to upload movement export", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	url, err := e.store.PresignGet(ctx, e.bucket, key, e.linkTTL)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Movement export uploaded", zap.String("key", key), zap.Int("rows", rows))
	return &models.MovementExport{
		Key:       key,
		URL:       url,
		Rows:      rows,
		ExpiresAt: time.Now().Add(e.linkTTL),
	}, nil
}

func movementRecord(m models.StockMovement) []string {
	reason, actor := "", ""
	if m.Reason != nil {
		reason = *m.Reason
	}
	if m.CreatedByUserID != nil {
		actor = strconv.FormatUint(uint64(*m.CreatedByUserID), 10)
	}
	return []string{
		strconv.FormatUint(uint64(m.ID), 10),
		strconv.FormatUint(uint64(m.StockID), 10),
		string(m.Type),
		strconv.Itoa(m.Quantity),
		reason,
		actor,
		m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
