package vpk

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveRef identifies an archive on disk by directory and base name, plus
// whether the original path already named the "_dir" file.
type ArchiveRef struct {
	Dir   string
	Base  string
	IsDir bool
}

// ParseRef derives an ArchiveRef from a target path by stripping a trailing
// ".vpk" then a trailing "_dir".
func ParseRef(path string) ArchiveRef {
	dir, file := filepath.Split(path)
	file = strings.TrimSuffix(file, ".vpk")
	isDir := strings.HasSuffix(file, "_dir")
	base := strings.TrimSuffix(file, "_dir")
	return ArchiveRef{Dir: dir, Base: base, IsDir: isDir}
}

// DirPath returns the directory file's path.
func (ref ArchiveRef) DirPath() string {
	return filepath.Join(ref.Dir, ref.Base+"_dir.vpk")
}

// ChunkPath returns the path of external chunk file idx.
func (ref ArchiveRef) ChunkPath(idx uint16) string {
	return filepath.Join(ref.Dir, JoinName(ref.Base, idx))
}

// JoinName builds a chunk file name from a base name and chunk index,
// zero-padded to three digits.
func JoinName(base string, chunkIndex uint16) string {
	return fmt.Sprintf("%s_%03d.vpk", base, chunkIndex)
}

// SplitName parses a chunk file name of the form "<base>_NNN.vpk", reporting
// whether name matched that shape.
func SplitName(name string) (base string, chunkIndex uint16, ok bool) {
	name = strings.TrimSuffix(name, ".vpk")
	i := strings.LastIndexByte(name, '_')
	if i < 0 || len(name)-i-1 != 3 {
		return "", 0, false
	}
	var n uint16
	for _, c := range name[i+1:] {
		if c < '0' || c > '9' {
			return "", 0, false
		}
		n = n*10 + uint16(c-'0')
	}
	return name[:i], n, true
}

// Open implements io/fs.FS over the archive's entry store, resolving name
// with Normalize and extracting on demand (without CRC validation, matching
// the cheap-open contract of fs.FS).
func (a *Archive) Open(name string) (fs.File, error) {
	if name == "." {
		return &vpkDirHandle{a: a}, nil
	}
	e, ok := a.Find(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	data, err := a.Extract(e)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &vpkFileHandle{entry: e, r: newByteReader(data)}, nil
}

type vpkFileHandle struct {
	entry *Entry
	r     *byteReader
}

func (h *vpkFileHandle) Stat() (fs.FileInfo, error) { return vpkFileInfo{h.entry}, nil }
func (h *vpkFileHandle) Read(p []byte) (int, error) { return h.r.Read(p) }
func (h *vpkFileHandle) Close() error               { return nil }

type vpkFileInfo struct{ e *Entry }

func (i vpkFileInfo) Name() string       { return i.e.FileName + pseudoExt(i.e.Type) }
func (i vpkFileInfo) Size() int64        { return int64(i.e.TotalLength()) }
func (i vpkFileInfo) Mode() fs.FileMode  { return 0o444 }
func (i vpkFileInfo) ModTime() time.Time { return time.Time{} }
func (i vpkFileInfo) IsDir() bool        { return false }
func (i vpkFileInfo) Sys() any           { return i.e }

func pseudoExt(ext string) string {
	if ext == none {
		return ""
	}
	return "." + ext
}

// vpkDirHandle is a minimal fs.ReadDirFile for the archive root, listing
// every entry by its file name plus extension (the directory part is not
// included); this module doesn't model intermediate directories as
// distinct fs.FS entries.
type vpkDirHandle struct {
	a       *Archive
	entries []fs.DirEntry
	read    bool
}

func (h *vpkDirHandle) Stat() (fs.FileInfo, error) { return rootDirInfo{}, nil }
func (h *vpkDirHandle) Read([]byte) (int, error)   { return 0, io.EOF }
func (h *vpkDirHandle) Close() error               { return nil }

func (h *vpkDirHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	if !h.read {
		for e := range h.a.Entries() {
			h.entries = append(h.entries, fs.FileInfoToDirEntry(vpkFileInfo{e}))
		}
		h.read = true
	}
	if n <= 0 {
		out := h.entries
		h.entries = nil
		return out, nil
	}
	if len(h.entries) == 0 {
		return nil, io.EOF
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := h.entries[:n]
	h.entries = h.entries[n:]
	return out, nil
}

type rootDirInfo struct{}

func (rootDirInfo) Name() string       { return "." }
func (rootDirInfo) Size() int64        { return 0 }
func (rootDirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (rootDirInfo) ModTime() time.Time { return time.Time{} }
func (rootDirInfo) IsDir() bool        { return true }
func (rootDirInfo) Sys() any           { return nil }

// byteReader is a tiny io.Reader over an in-memory slice, avoiding a
// dependency on bytes.Reader's wider Seek/ReadAt surface for this one use.
type byteReader struct {
	b []byte
	i int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
