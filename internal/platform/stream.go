// Package platform adapts external comment sources and moderation endpoints
// to the pipeline's interfaces.
package platform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/conversationai/perspective-modbot/internal/domain"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLineSize matches the record log reader's bound.
const maxLineSize = 4 * 1024 * 1024

// commentWire is the ingest format for one comment: the platform's raw
// field names, with created_utc in epoch seconds.
type commentWire struct {
	ID         string  `json:"id"`
	ParentID   string  `json:"parent_id"`
	LinkID     string  `json:"link_id"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
}

// CommentReader streams comments from a JSONL reader, typically a dump file
// or a feed subprocess on stdin.
type CommentReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	lineNo  int
}

// NewCommentReader wraps an open JSONL stream.
func NewCommentReader(r io.Reader) *CommentReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &CommentReader{scanner: scanner}
}

// OpenCommentFile streams comments from a JSONL file, or stdin when path
// is "-".
func OpenCommentFile(path string) (*CommentReader, error) {
	if path == "-" {
		return NewCommentReader(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open comment stream %s: %w", path, err)
	}
	cr := NewCommentReader(f)
	cr.closer = f
	return cr, nil
}

// Next returns the next comment, or io.EOF when the stream is exhausted.
func (r *CommentReader) Next(ctx context.Context) (domain.Comment, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Comment{}, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return domain.Comment{}, fmt.Errorf("read comment stream: %w", err)
			}
			return domain.Comment{}, io.EOF
		}
		r.lineNo++
		if len(r.scanner.Bytes()) == 0 {
			continue
		}

		var wire commentWire
		if err := jsonCodec.Unmarshal(r.scanner.Bytes(), &wire); err != nil {
			return domain.Comment{}, fmt.Errorf("comment stream line %d: %w", r.lineNo, err)
		}
		return wire.toComment(), nil
	}
}

// Close closes the underlying file, if any.
func (r *CommentReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (w commentWire) toComment() domain.Comment {
	author := w.Author
	if author == deletedAuthor {
		author = ""
	}
	sec := int64(w.CreatedUTC)
	nsec := int64((w.CreatedUTC - float64(sec)) * float64(time.Second))
	return domain.Comment{
		ID:         w.ID,
		ParentID:   w.ParentID,
		LinkID:     w.LinkID,
		Subreddit:  w.Subreddit,
		Permalink:  w.Permalink,
		Body:       w.Body,
		Author:     author,
		CreatedUTC: time.Unix(sec, nsec).UTC(),
	}
}
