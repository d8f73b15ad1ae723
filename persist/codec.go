package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"lukechampine.com/blake3"
)

// Blob layout: magic(4) | version(1) | blake3(body)(32) | body, where body
// is an lz4 frame holding a msgpack document.
const (
	blobMagic      = "SRLP"
	BlobVersion    = 1
	blobHeaderSize = len(blobMagic) + 1 + 32

	// maxDecodedSize caps the decompressed body.
	maxDecodedSize = 1 << 20
)

var (
	ErrCorrupt  = errors.New("corrupt blob")
	ErrVersion  = errors.New("blob version mismatch")
	ErrChecksum = errors.New("blob checksum mismatch")
)

// Encode serializes v into a versioned, checksummed blob.
func Encode(v interface{}) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if len(raw) > maxDecodedSize {
		return nil, fmt.Errorf("encode: %d bytes exceeds limit of %d", len(raw), maxDecodedSize)
	}
	var body bytes.Buffer
	zw := lz4.NewWriter(&body)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	sum := blake3.Sum256(body.Bytes())
	out := make([]byte, 0, blobHeaderSize+body.Len())
	out = append(out, blobMagic...)
	out = append(out, BlobVersion)
	out = append(out, sum[:]...)
	out = append(out, body.Bytes()...)
	return out, nil
}

// Decode verifies and unpacks a blob produced by Encode into v.
func Decode(data []byte, v interface{}) error {
	if len(data) < blobHeaderSize || string(data[:len(blobMagic)]) != blobMagic {
		return ErrCorrupt
	}
	if data[len(blobMagic)] != BlobVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersion, data[len(blobMagic)], BlobVersion)
	}
	body := data[blobHeaderSize:]
	sum := blake3.Sum256(body)
	if !bytes.Equal(sum[:], data[len(blobMagic)+1:blobHeaderSize]) {
		return ErrChecksum
	}

	zr := lz4.NewReader(bytes.NewReader(body))
	raw, err := io.ReadAll(io.LimitReader(zr, maxDecodedSize+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(raw) > maxDecodedSize {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrCorrupt, maxDecodedSize)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
