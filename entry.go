package vpk

import "fmt"

// Entry is a single logical file inside an archive.
type Entry struct {
	FileName  string // no extension
	Directory string // normalized; none when root
	Type      string // extension without dot; none when absent

	CRC32      uint32
	Length     uint32 // archive-resident bytes (excludes SmallData)
	Offset     uint32 // within the chunk, or within the embedded data region
	ChunkIndex uint16 // IndexDir means "embedded in the directory file"
	SmallData  []byte // preload bytes stored inline in the tree; may be empty

	// pending is set by Archive.Add: the entry's full content lives in
	// SmallData until Write assigns it a chunk placement and redistributes
	// it into the data region.
	pending bool
}

// TotalLength is Length plus the preloaded byte count.
func (e *Entry) TotalLength() uint32 {
	return e.Length + uint32(len(e.SmallData))
}

// FullPath reconstructs the entry's logical path.
func (e *Entry) FullPath() string {
	return FullPath(e.Type, e.Directory, e.FileName)
}

// Embedded reports whether the entry's bytes live in the directory file's
// data region rather than an external chunk file.
func (e *Entry) Embedded() bool {
	return e.ChunkIndex == IndexDir
}

func (e *Entry) String() string {
	return e.FullPath()
}

func (e *Entry) GoString() string {
	return fmt.Sprintf("vpk.Entry{Path: %q, CRC32: %#08x, Length: %d, Offset: %d, ChunkIndex: %d}",
		e.FullPath(), e.CRC32, e.Length, e.Offset, e.ChunkIndex)
}

// ArchiveStats summarizes an archive's entry store, useful for progress
// messages and tests.
type ArchiveStats struct {
	FileCount  int
	ChunkCount int
	TotalBytes uint64
}
