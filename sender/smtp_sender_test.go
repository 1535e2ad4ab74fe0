package sender

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSenderValidatesConfig(t *testing.T) {
	_, err := NewSMTPSender("", "587", "ops@example.com", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_HOST")

	_, err = NewSMTPSender("smtp.example.com", "587", "ops@example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PASS")

	s, err := NewSMTPSender("smtp.example.com", "587", "ops@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestBuildMessageEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	msg := string(buildMessage(
		"no-reply@example.com", "ops@example.com",
		"Order ORD-1 placed", "<p>1 item, KES 150.00</p>", at))

	headerBlock, body, found := strings.Cut(msg, "\r\n\r\n")
	require.True(t, found, "message must separate headers from body with a blank line")

	assert.Contains(t, headerBlock, "From: no-reply@example.com\r\n")
	assert.Contains(t, headerBlock, "To: ops@example.com\r\n")
	assert.Contains(t, headerBlock, "Subject: Order ORD-1 placed\r\n")
	assert.Contains(t, headerBlock, "Date: Sat, 14 Mar 2026 09:30:00 +0000")
	assert.Contains(t, headerBlock, `Content-Type: text/html; charset="UTF-8"`)
	assert.Equal(t, "<p>1 item, KES 150.00</p>", body)

	// Headers come before the body in a fixed order.
	assert.True(t, strings.Index(msg, "From:") < strings.Index(msg, "Subject:"))
}

func TestSendEmailHonorsCancelledContext(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", "587", "ops@example.com", "secret")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.SendEmail(ctx, "ops@example.com", "subject", "body")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
