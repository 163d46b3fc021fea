package vpk

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestArchiveRoundTripSingleFile(t *testing.T) {
	dir := t.TempDir()

	a := New()
	data := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := a.Add("addons/chess/chess.vdf", data); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := a.Add("readme.txt", []byte("hello")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	dirPath := filepath.Join(dir, "pak01_dir.vpk")
	if err := a.Write(dirPath); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b := New()
	if err := b.ReadDir(dirPath); err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	defer b.Close()

	e, ok := b.Find("addons/chess/chess.vdf")
	if !ok {
		t.Fatalf("Find(addons/chess/chess.vdf): not found after round-trip")
	}
	got, err := b.Extract(e, WithCRCValidation())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Extract = %q, want %q", got, data)
	}

	if err := b.VerifyTree(); err != nil {
		t.Errorf("VerifyTree: %v", err)
	}
	if err := b.VerifyHashTable(); err != nil {
		t.Errorf("VerifyHashTable: %v", err)
	}
	if err := b.VerifyWholeFile(); err != nil {
		t.Errorf("VerifyWholeFile: %v", err)
	}
	if err := b.VerifyChunkHashes(); err != nil {
		t.Errorf("VerifyChunkHashes: %v", err)
	}
	if err := b.VerifyFileCRCs(); err != nil {
		t.Errorf("VerifyFileCRCs: %v", err)
	}
}

func TestArchiveRoundTripChunked(t *testing.T) {
	dir := t.TempDir()

	a := New()
	sizes := []int{900 * 1024, 200 * 1024, 500 * 1024, 600 * 1024}
	var payloads [][]byte
	for i, sz := range sizes {
		p := bytes.Repeat([]byte{byte('A' + i)}, sz)
		payloads = append(payloads, p)
		if _, err := a.Add(filepath.Join("data", "file"+string(rune('0'+i))+".bin"), p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	dirPath := filepath.Join(dir, "pak01_dir.vpk")
	if err := a.Write(dirPath, WithChunkSize(1<<20)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b := New()
	if err := b.ReadDir(dirPath); err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	defer b.Close()

	for i := range sizes {
		path := filepath.Join("data", "file"+string(rune('0'+i))+".bin")
		e, ok := b.Find(path)
		if !ok {
			t.Fatalf("Find(%s): not found", path)
		}
		got, err := b.Extract(e, WithCRCValidation())
		if err != nil {
			t.Fatalf("Extract(%s): %v", path, err)
		}
		if !bytes.Equal(got, payloads[i]) {
			t.Errorf("Extract(%s) returned mismatched bytes", path)
		}
	}

	if err := b.VerifyChunkHashes(); err != nil {
		t.Errorf("VerifyChunkHashes: %v", err)
	}
	if b.Stats().ChunkCount != 2 {
		t.Errorf("ChunkCount = %d, want 2", b.Stats().ChunkCount)
	}
}

func TestComputePlacementMultiChunk(t *testing.T) {
	e1 := &Entry{SmallData: make([]byte, 900*1024)}
	e2 := &Entry{SmallData: make([]byte, 200*1024)}
	e3 := &Entry{SmallData: make([]byte, 500*1024)}
	e4 := &Entry{SmallData: make([]byte, 600*1024)}

	placement, chunkCount, err := computePlacement([]*Entry{e1, e2, e3, e4}, 1<<20, true)
	if err != nil {
		t.Fatalf("computePlacement: %v", err)
	}
	if chunkCount != 2 {
		t.Fatalf("chunkCount = %d, want 2", chunkCount)
	}

	want := map[*Entry]Placement{
		e1: {ChunkIndex: 0, Offset: 0},
		e2: {ChunkIndex: 0, Offset: 900 * 1024},
		e3: {ChunkIndex: 1, Offset: 0},
		e4: {ChunkIndex: 1, Offset: 500 * 1024},
	}
	for e, w := range want {
		got := placement[e]
		if got != w {
			t.Errorf("placement = %+v, want %+v", got, w)
		}
	}
}

func TestExtractCRCMismatch(t *testing.T) {
	a := New()
	data := []byte("payload")
	e, err := a.Add("file.bin", data)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	e.CRC32 = 0xDEADBEEF

	_, err = a.Extract(e, WithCRCValidation())
	if !IsCRCMismatch(err) {
		t.Fatalf("Extract = %v, want KindCRCMismatch", err)
	}
	want := "CRC32 mismatch for read data (expected DEADBEEF, got"
	if !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("error message = %q, want it to contain %q", err.Error(), want)
	}
}

func TestWriteEmptyArchiveFails(t *testing.T) {
	a := New()
	dir := t.TempDir()
	if err := a.Write(filepath.Join(dir, "empty_dir.vpk")); !IsInvalidState(err) {
		t.Errorf("Write of an empty archive = %v, want KindInvalidState", err)
	}
}

func TestAddAfterWriteFails(t *testing.T) {
	a := New()
	dir := t.TempDir()
	if _, err := a.Add("file.txt", []byte("x")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.Write(filepath.Join(dir, "pak_dir.vpk")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := a.Add("another.txt", []byte("y")); !IsInvalidState(err) {
		t.Errorf("Add after Write = %v, want KindInvalidState", err)
	}
}
