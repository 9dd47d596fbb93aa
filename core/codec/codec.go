// Package codec provides the payload transforms applied transparently
// by the local store on write and read. Implementations must round-trip
// exactly: Decode(Encode(p)) == p for every payload p.
package codec

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io/ioutil"
)

// ErrDecode is returned when a stored payload cannot be decoded. The
// store treats such records as poisoned and removes them rather than
// surfacing a crash.
var ErrDecode = errors.New("codec: undecodable payload")

// Codec is a pure, stateless transform pair.
type Codec interface {
	Encode(p []byte) ([]byte, error)
	Decode(p []byte) ([]byte, error)
}

type gzipCodec struct {
	level int
}

// NewGzip returns a gzip backed Codec with default compression level.
func NewGzip() Codec {
	return &gzipCodec{level: gzip.DefaultCompression}
}

func (c *gzipCodec) Encode(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *gzipCodec) Decode(p []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer r.Close()
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}

type passthrough struct{}

// NewPassthrough returns the identity Codec used when compression is
// disabled.
func NewPassthrough() Codec {
	return passthrough{}
}

func (passthrough) Encode(p []byte) ([]byte, error) { return p, nil }

func (passthrough) Decode(p []byte) ([]byte, error) { return p, nil }
