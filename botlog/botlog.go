// Package botlog writes the per-run CSV bot log: one row per processed
// record, linking the external id a bot worked from to the entity and
// revision it wrote.
package botlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/logger"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	filenameLayout  = "20060102_150405"
)

// Levels used in the log's first column.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

var header = []string{"level", "timestamp", "external_id", "external_id_prop", "wbid", "msg", "msg_type", "revid"}

// Entry is one bot-log row.
type Entry struct {
	Level          string
	ExternalID     string
	ExternalIDProp string
	WBID           string
	Msg            string
	MsgType        string
	RevID          int64
}

// Logger appends entries to one run's log file. Safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	csv   *csv.Writer
	runID string
	log   *zap.SugaredLogger
}

// New opens a log file named WB_bot_run-<UTC timestamp>.log under dir
// ("./logs" when empty), creating the directory as needed. The run id is
// recorded on the first row.
func New(dir string) (*Logger, error) {
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating bot log directory")
	}

	name := "WB_bot_run-" + time.Now().UTC().Format(filenameLayout) + ".log"
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening bot log file")
	}

	w := csv.NewWriter(f)
	w.Comma = ';'

	l := &Logger{
		file:  f,
		csv:   w,
		runID: uuid.NewString(),
		log:   logger.Named("botlog"),
	}

	if err := w.Write(append([]string{}, header...)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "writing bot log header")
	}
	if err := l.write(Entry{Level: LevelInfo, Msg: "run " + l.runID, MsgType: "run_start"}); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// RunID returns this run's identifier.
func (l *Logger) RunID() string { return l.runID }

// Write appends one entry, mirroring it through the structured logger.
func (l *Logger) Write(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.write(e); err != nil {
		return err
	}
	l.log.Infow(e.Msg,
		logger.FieldEntityID, e.WBID,
		logger.FieldPropertyID, e.ExternalIDProp,
		logger.FieldRevID, e.RevID,
	)
	return nil
}

func (l *Logger) write(e Entry) error {
	if e.Level == "" {
		e.Level = LevelInfo
	}
	revid := ""
	if e.RevID > 0 {
		revid = strconv.FormatInt(e.RevID, 10)
	}
	record := []string{
		e.Level,
		time.Now().UTC().Format(timestampLayout),
		e.ExternalID,
		e.ExternalIDProp,
		e.WBID,
		e.Msg,
		e.MsgType,
		revid,
	}
	if err := l.csv.Write(record); err != nil {
		return errors.Wrap(err, "writing bot log row")
	}
	l.csv.Flush()
	return errors.Wrap(l.csv.Error(), "flushing bot log")
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.csv.Flush()
	if err := l.csv.Error(); err != nil {
		l.file.Close()
		return errors.Wrap(err, "flushing bot log")
	}
	return errors.Wrap(l.file.Close(), "closing bot log")
}
