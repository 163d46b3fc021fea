package vpk

import (
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestArchiveFSOpenAndReadDir(t *testing.T) {
	dir := t.TempDir()
	a := New()
	if _, err := a.Add("addons/chess/chess.vdf", []byte("chess data")); err != nil {
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

	f, err := b.Open("addons/chess/chess.vdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "chess data" {
		t.Errorf("Open+ReadAll = %q, want %q", data, "chess data")
	}
	f.Close()

	if _, err := b.Open("no/such/file.bin"); !fs.ValidPath("no/such/file.bin") {
		t.Fatalf("test setup: path should be a valid fs.FS path")
	} else if err == nil {
		t.Errorf("Open of a missing path should return an error")
	}

	root, err := b.Open(".")
	if err != nil {
		t.Fatalf("Open(.): %v", err)
	}
	rd, ok := root.(fs.ReadDirFile)
	if !ok {
		t.Fatalf("Open(.) did not return a fs.ReadDirFile")
	}
	entries, err := rd.ReadDir(-1)
	if err != nil {
		t.Fatalf("ReadDir(-1): %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("ReadDir(-1) returned %d entries, want 2", len(entries))
	}
}
