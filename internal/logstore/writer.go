// Package logstore reads and writes the append-only JSONL record logs that
// form the bot's audit trail.
package logstore

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Appender writes records to a log file, one JSON object per line. Records
// are flushed to the OS on every append so a tailing reader sees complete
// lines. Single-writer: the design assumes one writer per log file.
type Appender struct {
	f    *os.File
	path string
}

// OpenAppend opens (or creates) a log for appending. Used by resume mode
// and the continuously-running scoring loop.
func OpenAppend(path string) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &Appender{f: f, path: path}, nil
}

// CreateExclusive creates a new log, failing loudly if the path already
// exists. Blind appends to an existing output are a config mistake.
func CreateExclusive(path string) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("output log %s exists already; use resume mode or pick another path", path)
		}
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}
	return &Appender{f: f, path: path}, nil
}

// Append writes one record as a JSON line.
func (a *Appender) Append(record any) error {
	line, err := jsonCodec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')
	if _, err := a.f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", a.path, err)
	}
	return nil
}

// Path returns the log's file path.
func (a *Appender) Path() string {
	return a.path
}

// Close closes the underlying file.
func (a *Appender) Close() error {
	return a.f.Close()
}
