package vpk

import "testing"

func TestEntryTotalLengthAndFullPath(t *testing.T) {
	e := &Entry{
		Type:      "vdf",
		Directory: "addons/chess",
		FileName:  "chess",
		Length:    100,
		SmallData: []byte("preload"),
	}
	if got, want := e.TotalLength(), uint32(107); got != want {
		t.Errorf("TotalLength() = %d, want %d", got, want)
	}
	if got, want := e.FullPath(), "addons/chess/chess.vdf"; got != want {
		t.Errorf("FullPath() = %q, want %q", got, want)
	}
	if got, want := e.String(), "addons/chess/chess.vdf"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEntryEmbedded(t *testing.T) {
	embedded := &Entry{ChunkIndex: IndexDir}
	external := &Entry{ChunkIndex: 3}
	if !embedded.Embedded() {
		t.Errorf("entry with ChunkIndex=IndexDir should report Embedded()")
	}
	if external.Embedded() {
		t.Errorf("entry with ChunkIndex=3 should not report Embedded()")
	}
}

func TestEntryFullPathRoot(t *testing.T) {
	e := &Entry{Type: none, Directory: none, FileName: "hello"}
	if got, want := e.FullPath(), "hello"; got != want {
		t.Errorf("FullPath() = %q, want %q", got, want)
	}
}
