package feed

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// maxFrameSize bounds the inflated size of one frame.
const maxFrameSize = 16 << 20

// Decompressor turns a raw frame into event text.
type Decompressor func(frame []byte) ([]byte, error)

// Inflate decodes a zlib-compressed frame.
func Inflate(frame []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxFrameSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if len(out) > maxFrameSize {
		return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrDecompression, maxFrameSize)
	}
	return out, nil
}

// Identity returns the frame unchanged.
func Identity(frame []byte) ([]byte, error) {
	return frame, nil
}
