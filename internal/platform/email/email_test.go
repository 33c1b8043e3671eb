package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hrflow/internal/platform/config"
)

func TestNewDisabledIsNoop(t *testing.T) {
	m := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	assert.IsType(t, noopMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), "a@example.com", "b@example.com", "s", "b"))
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("from@example.com", "to@example.com", "Hello\r\nBcc: evil@example.com", "body"))
	assert.Contains(t, msg, "Subject: Hello  Bcc: evil@example.com\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody"))
}
