// Package archive removes old done entries from the sync queue, optionally
// shipping them to S3-compatible storage first.
//
// Each batch becomes one JSON-lines object. Entries are deleted only after
// their batch was uploaded, and only done entries are ever touched.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/store"
	"github.com/dmitrijs2005/fintrack/internal/logging"
)

const (
	DefaultDoneRetention = 7 * 24 * time.Hour
	DefaultBatchSize     = 1000
)

type Config struct {
	// DoneRetention is how long done entries stay in the queue.
	DoneRetention time.Duration
	BatchSize     int
}

type Compactor struct {
	store    *store.Store
	uploader Uploader
	bucket   string
	prefix   string
	log      logging.Logger
	cfg      Config
	now      func() time.Time
}

// NewCompactor returns a compactor. A nil uploader means done entries are
// deleted without being archived.
func NewCompactor(st *store.Store, uploader Uploader, s3cfg S3Config, log logging.Logger, cfg Config) *Compactor {
	if log == nil {
		log = logging.Nop{}
	}
	if cfg.DoneRetention <= 0 {
		cfg.DoneRetention = DefaultDoneRetention
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Compactor{
		store:    st,
		uploader: uploader,
		bucket:   s3cfg.Bucket,
		prefix:   s3cfg.Prefix,
		log:      log.With("component", "archive"),
		cfg:      cfg,
		now:      time.Now,
	}
}

type Result struct {
	Archived int
	Deleted  int64
	Keys     []string
}

// line is the archived form of a queue entry.
type line struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"userId"`
	Action     models.Action   `json:"action"`
	Collection string          `json:"collection"`
	LocalID    string          `json:"localId"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Data       json.RawMessage `json:"data"`
}

// Compact archives and deletes the user's done entries older than the
// retention period.
func (c *Compactor) Compact(ctx context.Context, userID string) (Result, error) {
	var res Result
	cutoff := c.now().Add(-c.cfg.DoneRetention)
	queue := c.store.Queue(nil)

	for {
		entries, err := queue.ListDone(ctx, userID, cutoff, c.cfg.BatchSize)
		if err != nil {
			return res, err
		}
		if len(entries) == 0 {
			break
		}

		if c.uploader != nil {
			key, err := c.upload(ctx, userID, entries)
			if err != nil {
				return res, err
			}
			res.Keys = append(res.Keys, key)
			res.Archived += len(entries)
		}

		ids := make([]int64, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		n, err := queue.DeleteDone(ctx, ids)
		if err != nil {
			return res, err
		}
		res.Deleted += n

		if len(entries) < c.cfg.BatchSize {
			break
		}
	}

	if res.Deleted > 0 {
		c.log.Info(ctx, "compacted sync queue", "user", userID, "deleted", res.Deleted, "archived", res.Archived)
	}
	return res, nil
}

func (c *Compactor) upload(ctx context.Context, userID string, entries []*models.QueueEntry) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(line{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     e.Action,
			Collection: string(e.Collection),
			LocalID:    e.LocalID,
			Timestamp:  e.Timestamp,
			RetryCount: e.RetryCount,
			UpdatedAt:  e.UpdatedAt,
			Data:       e.Data,
		}); err != nil {
			return "", fmt.Errorf("failed to encode entry %d: %w", e.ID, err)
		}
	}

	key := c.objectKey(userID)
	_, err := c.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive %s: %w", key, err)
	}
	return key, nil
}

func (c *Compactor) objectKey(userID string) string {
	d := c.now().UTC()
	return fmt.Sprintf("%squeue/%s/%d/%02d/%02d/%s.jsonl", c.prefix, userID, d.Year(), d.Month(), d.Day(), uuid.New())
}
