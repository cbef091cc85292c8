package catalog

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestHexBytesUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"postgres hex", `"\\x0001ff"`, []byte{0x00, 0x01, 0xff}, false},
		{"bare hex", `"cafe"`, []byte{0xca, 0xfe}, false},
		{"empty", `"\\x"`, []byte{}, false},
		{"not hex", `"zz"`, nil, true},
		{"not a string", `42`, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var h HexBytes
			err := json.Unmarshal([]byte(tc.input), &h)
			if (err != nil) != tc.wantErr {
				t.Fatalf("error = %v; wantErr %v", err, tc.wantErr)
			}
			if err == nil && !bytes.Equal(h, tc.want) {
				t.Errorf("got %x; want %x", []byte(h), tc.want)
			}
		})
	}
}

func TestHexBytesScan(t *testing.T) {
	var h HexBytes
	if err := h.Scan([]byte{0xde, 0xad}); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if !bytes.Equal(h, []byte{0xde, 0xad}) {
		t.Errorf("got %x", []byte(h))
	}
	if err := h.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if h != nil {
		t.Errorf("nil scan should clear, got %x", []byte(h))
	}
	if err := h.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestAssetStatsTotal(t *testing.T) {
	s := AssetStats{Audio: 1, Images: 10, Videos: 5, Other: 2}
	if got := s.Total(); got != 18 {
		t.Errorf("Total = %d; want 18", got)
	}
}
