// Package recon reconciles previously-logged bot decisions against the
// eventually-observed moderation status of each comment.
package recon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoData signals that no complete line is currently available. For a
// live log this means "wait and retry", not failure.
var ErrNoData = errors.New("no data available yet")

// Source reads a record log line by line and tolerates a writer appending
// concurrently: a partial trailing line is not consumed until its newline
// arrives.
type Source struct {
	f      *os.File
	reader *bufio.Reader
	// offset is the byte position of the first unconsumed line.
	offset int64
}

// OpenSource opens a record log for tailing.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source log %s: %w", path, err)
	}
	return &Source{f: f, reader: bufio.NewReader(f)}, nil
}

// Next returns the next complete line without its newline, or ErrNoData
// when the log currently ends mid-line or at EOF.
func (s *Source) Next() ([]byte, error) {
	line, err := s.reader.ReadBytes('\n')
	if err == nil {
		s.offset += int64(len(line))
		return line[:len(line)-1], nil
	}
	if errors.Is(err, io.EOF) {
		// Rewind past the partial read so the line is retried whole once
		// the writer finishes it.
		if _, serr := s.f.Seek(s.offset, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind source: %w", serr)
		}
		s.reader.Reset(s.f)
		return nil, ErrNoData
	}
	return nil, err
}

// Offset returns the byte offset of the next unconsumed line.
func (s *Source) Offset() int64 {
	return s.offset
}

// Close closes the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}
