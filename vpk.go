// Package vpk reads, verifies, and writes Valve's VPK archive format.
//
// A VPK is either a single self-contained file or a directory file
// (<base>_dir.vpk) accompanied by numbered external chunk files
// (<base>_NNN.vpk) in the same directory. This package parses the
// directory tree and metadata of an existing archive, resolves and
// extracts entries by logical path, verifies tree/chunk/whole-file/
// signature integrity, and writes new archives (optionally split across
// chunks) with the layout and hashes the reference implementation
// produces.
//
// Compression, in-place modification of an existing archive, the Respawn
// 0x00030002 dialect, and version-1 writing are not supported.
package vpk

// Format constants.
const (
	// Magic is the four-byte signature at the start of every VPK.
	Magic uint32 = 0x55AA1234

	// respawnVersion is the Titanfall/Apex dialect, explicitly rejected.
	respawnVersion uint32 = 0x00030002

	// MaxChunkHashFractionSize is the size of a per-chunk hash fraction
	// (the last fraction of a chunk may be shorter).
	MaxChunkHashFractionSize = 1 << 20 // 1 MiB

	// IndexDir is the chunk-index sentinel meaning "embedded in the
	// directory file's data region".
	IndexDir uint16 = 0x7FFF

	// MaxChunks is the maximum number of external chunk files a written
	// archive can have (chunk indices 0 through MaxChunks-1).
	MaxChunks uint16 = 0x7FFE

	// treeTerminator is the 16-bit value following every entry record.
	treeTerminator uint16 = 0xFFFF

	// otherMD5SectionSize is the only valid size of the other-MD5 block.
	otherMD5SectionSize = 48

	// chunkHashRecordSize is the on-disk size of one per-chunk hash record.
	chunkHashRecordSize = 28
)

// none is the canonical placeholder for an absent directory or extension
// component (an absent file name is the empty string).
const none = " "
