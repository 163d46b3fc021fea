package vpk

import (
	"encoding/binary"
	"io"
)

// HashKind identifies which digest a chunk hash record was computed with.
type HashKind uint16

const (
	// HashMD5 is the classic 16-byte MD5 digest.
	HashMD5 HashKind = 0
	// HashBlake3 is a Blake3 digest truncated to 16 bytes.
	HashBlake3 HashKind = 1

	// legacyEmbeddedHashKind is the bit pattern written by some legacy
	// tools for an embedded-region hash record; see legacyRewrite.
	legacyEmbeddedHashKind HashKind = 0x8000
)

// ChunkHash is one record of the per-chunk hash table: a claim that hashing
// Length bytes starting at Offset within chunk ChunkIndex (or the directory
// file's embedded region, if ChunkIndex == IndexDir) with HashKind yields
// Checksum.
type ChunkHash struct {
	ChunkIndex uint16
	HashKind   HashKind
	Offset     uint32
	Length     uint32
	Checksum   [16]byte
}

// legacyRewrite applies a legacy-encoding fixup: a record on disk showing
// ChunkIndex==0 with HashKind==0x8000 actually means "embedded, MD5". This
// is retained verbatim with no further interpretation.
func (h *ChunkHash) legacyRewrite() {
	if h.ChunkIndex == 0 && h.HashKind == legacyEmbeddedHashKind {
		h.ChunkIndex = IndexDir
		h.HashKind = HashMD5
	}
}

// readChunkHashTable parses the archive-MD5 section: a packed array of
// chunkHashRecordSize-byte records, section-size/28 of them.
func readChunkHashTable(r io.Reader, sectionSize uint32) ([]ChunkHash, error) {
	if sectionSize%chunkHashRecordSize != 0 {
		return nil, newErrf("read chunk hash table", KindInvalidFormat,
			"archive md5 section size %d is not a multiple of %d", sectionSize, chunkHashRecordSize)
	}
	count := int(sectionSize / chunkHashRecordSize)
	out := make([]ChunkHash, count)
	buf := make([]byte, chunkHashRecordSize)
	for i := range out {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, newErr("read chunk hash table", KindInvalidFormat, err)
		}
		h := &out[i]
		h.ChunkIndex = binary.LittleEndian.Uint16(buf[0:2])
		h.HashKind = HashKind(binary.LittleEndian.Uint16(buf[2:4]))
		h.Offset = binary.LittleEndian.Uint32(buf[4:8])
		h.Length = binary.LittleEndian.Uint32(buf[8:12])
		copy(h.Checksum[:], buf[12:28])
		h.legacyRewrite()
	}
	return out, nil
}

// writeChunkHashTable emits the per-chunk hash table in the given order
// (the writer always emits it already grouped by chunk index, then offset,
// so no sort happens here).
func writeChunkHashTable(w io.Writer, table []ChunkHash) error {
	buf := make([]byte, chunkHashRecordSize)
	for _, h := range table {
		binary.LittleEndian.PutUint16(buf[0:2], h.ChunkIndex)
		binary.LittleEndian.PutUint16(buf[2:4], uint16(h.HashKind))
		binary.LittleEndian.PutUint32(buf[4:8], h.Offset)
		binary.LittleEndian.PutUint32(buf[8:12], h.Length)
		copy(buf[12:28], h.Checksum[:])
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
