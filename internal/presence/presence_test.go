package presence

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turntable-server/turntable/internal/domain"
)

func testClient(t *testing.T) (*Client, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewWithClient(rdb, logger), mock
}

func TestOnline(t *testing.T) {
	client, mock := testClient(t)
	ctx := context.Background()

	mock.ExpectExists("presence:user:17").SetVal(1)
	online, err := client.Online(ctx, 17)
	require.NoError(t, err)
	assert.True(t, online)

	mock.ExpectExists("presence:user:42").SetVal(0)
	online, err = client.Online(ctx, 42)
	require.NoError(t, err)
	assert.False(t, online)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMode(t *testing.T) {
	client, mock := testClient(t)
	ctx := context.Background()

	mock.ExpectHGet("presence:user:17", "mode").SetVal("2")
	mode, err := client.Mode(ctx, 17)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCatch, mode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeNoSession(t *testing.T) {
	client, mock := testClient(t)

	mock.ExpectHGet("presence:user:42", "mode").RedisNil()
	_, err := client.Mode(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeCorruptValue(t *testing.T) {
	client, mock := testClient(t)

	mock.ExpectHGet("presence:user:17", "mode").SetVal("standard")
	_, err := client.Mode(context.Background(), 17)
	assert.Error(t, err)

	mock.ExpectHGet("presence:user:17", "mode").SetVal("9")
	_, err = client.Mode(context.Background(), 17)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.NoError(t, mock.ExpectationsWereMet())
}
