package natsnotify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/notify"
)

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.subject, p.data = subject, data
	return p.err
}

var _ notify.Notifier = (*Notifier)(nil)

func TestNotifier_PublishesEnvelopeJSON(t *testing.T) {
	pub := &recordingPublisher{}
	n := New(pub, "ui.errors")

	env := notify.Envelope{
		Type:     notify.TypeWarning,
		Message:  "Invalid input",
		Code:     apierror.CodeValidationError,
		Severity: apierror.SeverityWarning,
	}
	require.NoError(t, n.Notify(context.Background(), env))

	assert.Equal(t, "ui.errors", pub.subject)
	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, map[string]any{
		"type":    "warning",
		"message": "Invalid input",
		"code":    "VALIDATION_ERROR",
	}, got)
}

func TestNotifier_DefaultSubject(t *testing.T) {
	pub := &recordingPublisher{}
	require.NoError(t, New(pub, "").Notify(context.Background(), notify.Envelope{Type: notify.TypeError}))
	assert.Equal(t, DefaultSubject, pub.subject)
}

func TestNotifier_WrapsPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	err := New(pub, "s").Notify(context.Background(), notify.Envelope{})

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
	assert.ErrorIs(t, err, pub.err)
	assert.Equal(t, "nats", notify.NameOf(New(pub, "s")))
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(Config{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestClose_WithoutConnection(t *testing.T) {
	assert.NoError(t, New(&recordingPublisher{}, "s").Close())
}
