package vpk

import (
	"bufio"
	"bytes"
	"testing"
)

func TestTreeRoundTrip(t *testing.T) {
	src := newEntryStore()
	a := &Entry{Type: "txt", Directory: "dir", FileName: "a", CRC32: 0x11111111, Length: 100}
	b := &Entry{Type: "txt", Directory: none, FileName: "b", CRC32: 0x22222222, Length: 200, SmallData: []byte("preload")}
	c := &Entry{Type: "vdf", Directory: "other/dir", FileName: "c", CRC32: 0x33333333, Length: 50}
	src.Add(a)
	src.Add(b)
	src.Add(c)

	placement := map[*Entry]Placement{
		a: {ChunkIndex: 0, Offset: 0},
		b: {ChunkIndex: 0, Offset: 100},
		c: {ChunkIndex: IndexDir, Offset: 0},
	}

	var buf bytes.Buffer
	n, err := writeTree(&buf, src, placement)
	if err != nil {
		t.Fatalf("writeTree: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("writeTree returned %d, but buffer holds %d bytes", n, buf.Len())
	}

	dst := newEntryStore()
	consumed, err := readTree(bufio.NewReader(&buf), dst)
	if err != nil {
		t.Fatalf("readTree: %v", err)
	}
	if consumed != n {
		t.Errorf("readTree consumed %d bytes, writeTree emitted %d", consumed, n)
	}

	for _, want := range []*Entry{a, b, c} {
		got, ok := dst.Find(want.FullPath())
		if !ok {
			t.Fatalf("Find(%s) after round-trip: not found", want.FullPath())
		}
		p := placement[want]
		if got.CRC32 != want.CRC32 {
			t.Errorf("%s: CRC32 = %08X, want %08X", want.FullPath(), got.CRC32, want.CRC32)
		}
		if got.ChunkIndex != p.ChunkIndex || got.Offset != p.Offset {
			t.Errorf("%s: placement = (%d,%d), want (%d,%d)", want.FullPath(), got.ChunkIndex, got.Offset, p.ChunkIndex, p.Offset)
		}
		if got.Length != want.TotalLength() {
			t.Errorf("%s: Length = %d, want %d (TotalLength, since write folds preload into data)", want.FullPath(), got.Length, want.TotalLength())
		}
		if len(got.SmallData) != 0 {
			t.Errorf("%s: round-tripped entry should carry no preload bytes (write always folds them into data)", want.FullPath())
		}
	}
}

func TestTreeEmpty(t *testing.T) {
	var buf bytes.Buffer
	src := newEntryStore()
	if _, err := writeTree(&buf, src, map[*Entry]Placement{}); err != nil {
		t.Fatalf("writeTree of an empty store: %v", err)
	}
	dst := newEntryStore()
	if _, err := readTree(bufio.NewReader(&buf), dst); err != nil {
		t.Fatalf("readTree of an empty tree: %v", err)
	}
	if dst.Len() != 0 {
		t.Errorf("readTree of an empty tree produced %d entries, want 0", dst.Len())
	}
}

func TestTreeBadTerminatorIsInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("txt\x00")  // extension
	buf.WriteString("dir\x00")  // directory
	buf.WriteString("name\x00") // file name
	buf.Write(make([]byte, 16)) // crc32, small-data-size, chunk-index, offset, length
	buf.Write([]byte{0xAD, 0xDE})
	// then would continue with the next filename/0/0/0, but readEntryRecord
	// fails before that point

	dst := newEntryStore()
	if _, err := readTree(bufio.NewReader(&buf), dst); !IsInvalidFormat(err) {
		t.Errorf("readTree with a bad terminator = %v, want KindInvalidFormat", err)
	}
}
