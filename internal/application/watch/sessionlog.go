package watch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// SessionLogger appends every feed item to a plain-text log file, in feed
// order. It tracks the highest feed sequence number it has written, so each
// flush only appends what is new even when older items have been evicted
// from the bounded feed in between.
type SessionLogger struct {
	path   string
	file   *os.File
	writer *bufio.Writer

	lastSeq uint64
}

// DefaultSessionLogPath returns logs/session-<timestamp>.log under the
// working directory.
func DefaultSessionLogPath() (string, error) {
	name := fmt.Sprintf("session-%s.log", time.Now().Format("20060102-150405"))
	return filepath.Abs(filepath.Join("logs", name))
}

// NewSessionLogger creates the log file, making parent directories as
// needed.
func NewSessionLogger(path string) (*SessionLogger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return &SessionLogger{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Path returns the log file location.
func (l *SessionLogger) Path() string {
	return l.path
}

// LogLine writes one timestamped line and flushes.
func (l *SessionLogger) LogLine(line string) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(l.writer, "[%s] %s\n", now, line); err != nil {
		return fmt.Errorf("failed to write to session log: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush session log: %w", err)
	}
	return nil
}

// FlushNewFeedItems appends every feed item not yet written. The feed is
// passed newest first, as the store keeps it.
func (l *SessionLogger) FlushNewFeedItems(feed []model.FeedItem) error {
	ordered := make([]model.FeedItem, len(feed))
	for i, item := range feed {
		ordered[len(feed)-1-i] = item
	}

	for _, item := range ordered {
		if item.Seq <= l.lastSeq {
			continue
		}

		line := item.Summary()
		if item.URL != "" {
			line += " | URL: " + item.URL
		}
		if err := l.LogLine(line); err != nil {
			return err
		}
		l.lastSeq = item.Seq
	}
	return nil
}

// Close flushes and closes the log file.
func (l *SessionLogger) Close() error {
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
