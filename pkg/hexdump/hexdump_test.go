package hexdump

import (
	"bytes"
	"testing"
)

func TestBlock(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("ABCDEFGH\x00\x01\xff")
	if err := Block(&buf, data, 0x100, 8); err != nil {
		t.Fatalf("Block: %v", err)
	}
	want := "00000100: 41 42 43 44 45 46 47 48  |ABCDEFGH|\n" +
		"00000108: 00 01 ff                 |...|\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBlockEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Block(&buf, nil, 0, 16); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
