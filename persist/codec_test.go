package persist

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

type sample struct {
	Name  string         `msgpack:"name"`
	Score int            `msgpack:"score"`
	Tags  map[string]int `msgpack:"tags"`
}

func TestEncodeDecode(t *testing.T) {
	in := sample{Name: "vanguard", Score: 42, Tags: map[string]int{"hull_plating": 2}}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data[:4]) != "SRLP" {
		t.Errorf("magic = %q", data[:4])
	}
	var out sample
	if err := Decode(data, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Name != in.Name || out.Score != in.Score || out.Tags["hull_plating"] != 2 {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestDecodeRejectsDamage(t *testing.T) {
	good, err := Encode(sample{Name: "x", Score: 1})
	if err != nil {
		t.Fatal(err)
	}
	clone := func() []byte { return append([]byte(nil), good...) }

	badVersion := clone()
	badVersion[4] = BlobVersion + 1

	flipped := clone()
	flipped[len(flipped)-1] ^= 0xff

	badMagic := clone()
	badMagic[0] = 'X'

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrCorrupt},
		{"truncated header", good[:10], ErrCorrupt},
		{"magic", badMagic, ErrCorrupt},
		{"version", badVersion, ErrVersion},
		{"body bit flip", flipped, ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out sample
			err := Decode(tt.data, &out)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode err = %v, want %v", err, tt.want)
			}
		})
	}
}

// sealBlob frames an arbitrary body with a valid header and checksum.
func sealBlob(t *testing.T, raw []byte) []byte {
	t.Helper()
	var body bytes.Buffer
	zw := lz4.NewWriter(&body)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	sum := blake3.Sum256(body.Bytes())
	out := append([]byte(blobMagic), BlobVersion)
	out = append(out, sum[:]...)
	return append(out, body.Bytes()...)
}

func TestDecodeRejectsOversizedBody(t *testing.T) {
	data := sealBlob(t, make([]byte, maxDecodedSize+1))
	if len(data) > maxDecodedSize/100 {
		t.Fatalf("blob should compress well, got %d bytes", len(data))
	}
	var out sample
	if err := Decode(data, &out); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Decode err = %v, want %v", err, ErrCorrupt)
	}
}

func TestEncodeRejectsOversizedValue(t *testing.T) {
	if _, err := Encode(sample{Name: string(make([]byte, maxDecodedSize))}); err == nil {
		t.Error("expected an error for an oversized value")
	}
}
