package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/config"
)

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(zerolog.New(&buf))

	err := sender.Send(context.Background(), Message{To: "a@example.com", Subject: "Reset", Body: "link"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"a@example.com"`)
	assert.Contains(t, buf.String(), `"message":"link"`)
}

func TestNew_SelectsDriver(t *testing.T) {
	logger := zerolog.Nop()

	s, err := New(config.MailConfig{Driver: "log"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = New(config.MailConfig{Driver: "smtp", Host: "smtp.example.com", Port: 587, From: "hello@natours.io"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = New(config.MailConfig{Driver: "pigeon"}, logger)
	assert.Error(t, err)
}
