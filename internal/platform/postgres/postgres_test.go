package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect_RejectsEmptyDSN(t *testing.T) {
	db, err := Connect(context.Background(), "   ")
	require.Nil(t, db)
	require.EqualError(t, err, "postgres dsn is empty")
}

func TestConnectOptional_WithoutDSNStaysInMemory(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	db, cleanup := ConnectOptional(context.Background(), "", "orders", logger)
	require.Nil(t, db)
	require.NotNil(t, cleanup)
	cleanup()
	require.Contains(t, buf.String(), `"store":"orders"`)
	require.Contains(t, buf.String(), "no postgres dsn configured")
}
