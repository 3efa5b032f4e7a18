package botlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRun(t *testing.T) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return l, filepath.Join(dir, entries[0].Name())
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestLogFileNaming(t *testing.T) {
	_, path := openRun(t)
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "WB_bot_run-"), base)
	assert.True(t, strings.HasSuffix(base, ".log"), base)
}

func TestHeaderAndRunID(t *testing.T) {
	l, path := openRun(t)
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "run "+l.RunID(), rows[1][5])
	assert.Equal(t, "run_start", rows[1][6])
}

func TestWriteEntry(t *testing.T) {
	l, path := openRun(t)
	require.NoError(t, l.Write(Entry{
		Level:          LevelWarning,
		ExternalID:     "P00533",
		ExternalIDProp: "P352",
		WBID:           "Q14911732",
		Msg:            "updated protein entry",
		MsgType:        "update",
		RevID:          123456,
	}))
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	row := rows[2]
	assert.Equal(t, LevelWarning, row[0])
	assert.Equal(t, "P00533", row[2])
	assert.Equal(t, "P352", row[3])
	assert.Equal(t, "Q14911732", row[4])
	assert.Equal(t, "updated protein entry", row[5])
	assert.Equal(t, "update", row[6])
	assert.Equal(t, "123456", row[7])
}

func TestDelimiterEscaping(t *testing.T) {
	l, path := openRun(t)
	msg := `found; with "quotes" and ; delimiters`
	require.NoError(t, l.Write(Entry{Msg: msg, MsgType: "note"}))
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, msg, rows[2][5], "delimiter collisions survive the round trip")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"found; with ""quotes"" and ; delimiters"`)
}
