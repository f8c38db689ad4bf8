package mailfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixture = `[
  {
    "subject": "Application received",
    "sender": "careers@acme.example",
    "timestamp": "2024-03-01T09:00:00Z",
    "body": "Thank you for applying to Acme."
  },
  {
    "id": "custom-id",
    "subject": "Interview invitation",
    "sender": "careers@acme.example",
    "timestamp": "2024-03-11",
    "body": "We would like to invite you to an interview.",
    "unread": true
  },
  {
    "subject": "Offer",
    "sender": "careers@acme.example",
    "timestamp": "2024-04-01T12:30:00Z",
    "body": "We are pleased to extend an offer."
  }
]`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewSourceLoadsMessages(t *testing.T) {
	src, err := NewSource(writeFixture(t, fixture), 0, zap.NewNop())
	require.NoError(t, err)

	msg, err := src.FetchDetail(context.Background(), "msg-0")
	require.NoError(t, err)
	assert.Equal(t, "Application received", msg.Subject)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), msg.Timestamp)

	msg, err = src.FetchDetail(context.Background(), "custom-id")
	require.NoError(t, err)
	assert.True(t, msg.Unread)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), msg.Timestamp)
}

func TestFetchPagePagination(t *testing.T) {
	src, err := NewSource(writeFixture(t, fixture), 2, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	ids, next, err := src.FetchPage(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-0", "custom-id"}, ids)
	require.Equal(t, "2", next)

	ids, next, err = src.FetchPage(ctx, "", next)
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-2"}, ids)
	assert.Empty(t, next)
}

func TestFetchPageBadCursor(t *testing.T) {
	src, err := NewSource(writeFixture(t, fixture), 2, zap.NewNop())
	require.NoError(t, err)

	_, _, err = src.FetchPage(context.Background(), "", "not-a-number")
	assert.Error(t, err)
}

func TestFetchDetailUnknownID(t *testing.T) {
	src, err := NewSource(writeFixture(t, fixture), 0, zap.NewNop())
	require.NoError(t, err)

	_, err = src.FetchDetail(context.Background(), "nope")
	assert.Error(t, err)
}

func TestNewSourceRejectsBadTimestamp(t *testing.T) {
	_, err := NewSource(writeFixture(t, `[{"subject": "x", "timestamp": "yesterday"}]`), 0, zap.NewNop())
	assert.Error(t, err)
}

func TestNewSourceMissingFile(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "absent.json"), 0, zap.NewNop())
	assert.Error(t, err)
}
