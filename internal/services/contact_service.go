package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"atelier/internal/models"
	"atelier/pkg/notify"

	"go.uber.org/zap"
)

// ContactMessagesQueue carries notifications about new contact messages.
const ContactMessagesQueue = "contact_messages"

// ContactDispatcher notifies the admin of stored contact messages, through
// the queue when a publisher is set and directly otherwise.
type ContactDispatcher struct {
	Publisher Publisher
	Notifier  notify.Notifier
}

// Dispatch never fails the request that stored msg; problems are logged.
func (d ContactDispatcher) Dispatch(ctx context.Context, msg *models.ContactMessage) {
	if d.Publisher != nil {
		body, err := json.Marshal(msg)
		if err == nil {
			err = d.Publisher.Publish(ContactMessagesQueue, body)
		}
		if err == nil {
			return
		}
		zap.L().Warn("queueing contact notification failed, sending inline",
			zap.String("id", msg.ID), zap.Error(err))
	}
	if d.Notifier == nil {
		return
	}
	// The request context ends with the response; the mail may not.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := d.Notifier.NotifyContactMessage(ctx, *msg); err != nil {
		zap.L().Warn("contact notification failed", zap.String("id", msg.ID), zap.Error(err))
	}
}

// HandleContactMessage decodes a queued notification and delivers it.
func HandleContactMessage(ctx context.Context, notifier notify.Notifier, body []byte) error {
	var msg models.ContactMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("invalid contact notification: %w", err)
	}
	return notifier.NotifyContactMessage(ctx, msg)
}
