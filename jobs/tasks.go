// Package jobs contains the background task definitions and the Asynq
// worker runtime shared by the API server and the worker binary.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendWhatsApp is the task type for WhatsApp notifications.
	TaskTypeSendWhatsApp = "whatsapp:send"
	// TaskTypeExpiryScan is the task type for the subscription expiry scan.
	TaskTypeExpiryScan = "subscriptions:expiry-scan"
)

// SendWhatsAppPayload describes an outbound WhatsApp message.
type SendWhatsAppPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewSendWhatsAppTask constructs an Asynq task.
func NewSendWhatsAppTask(payload SendWhatsAppPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendWhatsApp, data, asynq.Queue(QueueDefault)), nil
}

// HandleSendWhatsAppTask processes TaskTypeSendWhatsApp tasks.
func HandleSendWhatsAppTask(ctx context.Context, t *asynq.Task) error {
	var payload SendWhatsAppPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Phone == "" {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with the WhatsApp Business API gateway.
	fmt.Printf("[jobs] send whatsapp to %s len=%d\n", payload.Phone, len(payload.Message))
	return nil
}
