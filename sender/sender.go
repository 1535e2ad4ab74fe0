package sender

import (
	"context"
	"time"
)

// SendResult reports a dispatched message.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers transactional email. All callers treat delivery as
// best-effort; a failed send never fails the business operation.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (SendResult, error)
}
