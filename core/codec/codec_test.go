package codec

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

// TestGzip_roundTrip validates that every payload survives an
// encode/decode cycle unchanged.
func TestGzip_roundTrip(t *testing.T) {
	c := NewGzip()

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "text", data: []byte(`{"title":"offline article","body":"cached"}`)},
		{name: "binary", data: randomBytes(t, 4096)},
		{name: "repetitive", data: bytes.Repeat([]byte("stash"), 1000)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := c.Encode(tc.data)
			if err != nil {
				t.Fatal(err)
			}
			got, err := c.Decode(enc)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tc.data) {
				t.Errorf("got payload %x, want %x", got, tc.data)
			}
		})
	}
}

// TestGzip_corrupt validates that undecodable data is reported
// as ErrDecode, not as a crash or a silent zero value.
func TestGzip_corrupt(t *testing.T) {
	c := NewGzip()

	_, err := c.Decode([]byte("definitely not gzip"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("got error %v, want %v", err, ErrDecode)
	}

	enc, err := c.Encode([]byte("valid payload"))
	if err != nil {
		t.Fatal(err)
	}
	// flip a byte in the deflate stream
	enc[len(enc)-5] ^= 0xff
	if _, err := c.Decode(enc); !errors.Is(err, ErrDecode) {
		t.Fatalf("got error %v, want %v", err, ErrDecode)
	}
}

// TestPassthrough validates the identity transform used when
// compression is disabled.
func TestPassthrough(t *testing.T) {
	c := NewPassthrough()

	want := []byte("plain payload")
	enc, err := c.Encode(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc, want) {
		t.Errorf("got encoded %q, want %q", enc, want)
	}
	got, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got decoded %q, want %q", got, want)
	}
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(err)
	}
	return b
}
