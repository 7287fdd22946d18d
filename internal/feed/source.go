package feed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Source yields raw frames. Receive returns ErrTimeout when nothing arrived
// within timeout and io.EOF when the source is exhausted.
type Source interface {
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

// ReplaySource reads newline-delimited events, one frame per line. Frames are
// not compressed, so pair it with Identity. A line longer than maxFrameSize
// is skipped and reported as ErrFrameTooLarge; the next Receive continues
// with the following line.
type ReplaySource struct {
	closer io.Closer
	reader *bufio.Reader
}

func NewReplaySource(r io.Reader) *ReplaySource {
	s := &ReplaySource{reader: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func OpenReplayFile(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay file: %w", err)
	}
	return NewReplaySource(f), nil
}

func (s *ReplaySource) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) > 0 {
			return line, nil
		}
	}
}

// readLine returns the next line without its terminator. An oversized line
// is consumed in full but not buffered.
func (s *ReplaySource) readLine() ([]byte, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if !oversized {
			// Slack for a "\r\n" terminator.
			if len(line)+len(chunk) > maxFrameSize+2 {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(chunk) == 0 && len(line) == 0 && !oversized {
				return nil, io.EOF
			}
		default:
			return nil, fmt.Errorf("reading replay: %w", err)
		}

		line = bytes.TrimRight(line, "\r\n")
		if oversized || len(line) > maxFrameSize {
			return nil, fmt.Errorf("%w: replay line exceeds %d bytes", ErrFrameTooLarge, maxFrameSize)
		}
		return line, nil
	}
}

func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
