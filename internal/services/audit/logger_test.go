package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "audit.ndjson")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	return logger
}

func TestNewLoggerCreatesParentDir(t *testing.T) {
	logger := newTestLogger(t)

	info, err := os.Stat(filepath.Dir(logger.filePath))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := logger.ReadLog()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogOperationAndReadLogRoundTrip(t *testing.T) {
	logger := newTestLogger(t)

	entry1 := LogEntry{
		ID:        "1",
		ChainID:   "aabbcc",
		Timestamp: time.Unix(1000, 0).UTC(),
		Operation: OpChainAdd,
		Status:    StatusSuccess,
	}
	entry2 := LogEntry{
		ID:            "2",
		ChainID:       "aabbcc",
		Timestamp:     time.Unix(2000, 0).UTC(),
		Operation:     OpKeyAccess,
		Status:        StatusFailure,
		FailureReason: "locked",
	}

	require.NoError(t, logger.LogOperation(entry1))
	require.NoError(t, logger.LogOperation(entry2))

	entries, err := logger.ReadLog()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entry1.Operation, entries[0].Operation)
	assert.Equal(t, entry2.FailureReason, entries[1].FailureReason)
}

func TestReadLogMissingFileReturnsEmpty(t *testing.T) {
	logger := &Logger{filePath: filepath.Join(t.TempDir(), "missing.ndjson")}

	entries, err := logger.ReadLog()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadLogSkipsMalformedLines(t *testing.T) {
	logger := newTestLogger(t)

	require.NoError(t, logger.LogOperation(LogEntry{ID: "1", Operation: OpSeedAdd, Status: StatusSuccess}))

	// append a malformed line by hand, then log a valid entry after it
	f, err := os.OpenFile(logger.filePath, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, logger.LogOperation(LogEntry{ID: "2", Operation: OpSeedsEncrypted, Status: StatusSuccess}))

	entries, err := logger.ReadLog()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)
}
