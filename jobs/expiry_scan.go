package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpiryScanPayload controls the scan window.
type ExpiryScanPayload struct {
	WindowDays int `json:"window_days"`
}

// NewExpiryScanTask constructs the recurring expiry-scan task.
func NewExpiryScanTask(payload ExpiryScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExpiryScan, data, asynq.Queue(QueueDefault)), nil
}

// ExpiryScanJob finds subscriptions about to lapse and queues WhatsApp
// reminders to the affected members.
type ExpiryScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Client *Client
	clock  func() time.Time
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(pool *pgxpool.Pool, logger *slog.Logger, client *Client) *ExpiryScanJob {
	return &ExpiryScanJob{
		Pool:   pool,
		Logger: logger,
		Client: client,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type expiringRow struct {
	MemberName string
	Phone      string
	Plan       string
	ExpiresAt  time.Time
}

// Handle executes the expiry scan.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 7
	}

	start := j.clock()
	logger := j.Logger.With(slog.Int("window_days", payload.WindowDays))
	logger.Info("starting subscription expiry scan")

	rows, err := j.Pool.Query(ctx,
		`SELECT m.full_name, m.phone, s.plan, s.expires_at
		   FROM subscriptions s
		   JOIN members m ON m.id = s.member_id
		  WHERE m.is_active
		    AND s.expires_at > NOW()
		    AND s.expires_at <= NOW() + make_interval(days => $1)`,
		payload.WindowDays)
	if err != nil {
		logger.Error("expiry scan query", slog.Any("error", err))
		return err
	}
	defer rows.Close()

	var expiring []expiringRow
	for rows.Next() {
		var row expiringRow
		if err := rows.Scan(&row.MemberName, &row.Phone, &row.Plan, &row.ExpiresAt); err != nil {
			return err
		}
		expiring = append(expiring, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	queued := 0
	for _, row := range expiring {
		if row.Phone == "" {
			continue
		}
		msg := fmt.Sprintf("Hi %s, your %s membership expires on %s. Renew at the front desk to keep training.",
			row.MemberName, row.Plan, row.ExpiresAt.Format("2 Jan 2006"))
		if j.Client != nil {
			if _, err := j.Client.EnqueueSendWhatsApp(ctx, SendWhatsAppPayload{Phone: row.Phone, Message: msg}); err != nil {
				logger.Warn("queue reminder", slog.Any("error", err))
				continue
			}
		}
		queued++
	}

	logger.Info("expiry scan complete",
		slog.Int("expiring", len(expiring)),
		slog.Int("reminders_queued", queued),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
