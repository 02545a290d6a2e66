package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/prompt-relay/internal/common"
)

func TestNewOTPMessage(t *testing.T) {
	msg, err := newOTPMessage("noreply@example.com", "a@x.com", 4321)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Subject: Your verification code")
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, "Your verification code is 004321.")
}

func TestNewOTPMessage_InvalidAddress(t *testing.T) {
	_, err := newOTPMessage("noreply@example.com", "not an address", 123456)
	assert.Error(t, err)
}

func TestNewSMTPSender_FromDefaultsToUsername(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "bot@example.com", "pw", "")
	assert.Equal(t, "bot@example.com", s.from)
}

func TestUnconfiguredSender(t *testing.T) {
	err := UnconfiguredSender{}.SendOTP(context.Background(), "a@x.com", 123456)
	assert.True(t, errors.Is(err, common.ErrNotConfigured))
}
