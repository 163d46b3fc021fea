package vpk

import (
	"bufio"
	"bytes"
	"hash/crc32"
	"io"
	"iter"
	"os"
)

// Archive is the single owning context for an opened or in-progress VPK: it
// holds the primary byte source, header/section layout, entry store,
// optional signature material, per-chunk hash table, and the mapped-chunk
// cache.
type Archive struct {
	ref   ArchiveRef
	named bool

	primary  io.ReaderAt
	fileSize int64

	hdr   *header
	store *entryStore

	hashTable []ChunkHash
	other     *otherMD5
	signature *Signature

	dataRegionStart int64
	sections        archiveSections

	chunkCache chunkMapCache
	closer     io.Closer

	written bool
}

type otherMD5 struct {
	Tree, HashTable, WholeFile [16]byte
	Present                    bool
}

// archiveSections records the absolute byte offsets and sizes of every
// section after the tree, computed once at read time so the verifier
// doesn't need to re-derive them.
type archiveSections struct {
	headerSize   int64
	treeSize     int64
	fileDataSize int64

	archiveMD5Offset int64
	archiveMD5Size   int64

	otherMD5Offset int64
	otherMD5Size   int64

	signatureOffset int64
	signatureSize   int64
}

// New returns an empty archive, ready for SetName+ReadDir/ReadFrom or Add.
func New() *Archive {
	return &Archive{store: newEntryStore()}
}

// SetName fixes the archive's base name. ReadFrom requires it, and it
// locates the external chunk files of a stream-read archive. ReadDir and
// Write derive the name from their path argument instead.
func (a *Archive) SetName(baseName string) {
	a.ref = ParseRef(baseName)
	a.named = true
}

// ReadDir opens "<base>_dir.vpk" (or a single-file archive) at dirPath and
// parses its header, tree, and sections.
func (a *Archive) ReadDir(dirPath string) error {
	f, err := os.Open(dirPath)
	if err != nil {
		return newErr("read dir", KindNotFound, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return newErr("read dir", KindInvalidFormat, err)
	}

	a.ref = ParseRef(dirPath)
	a.named = true
	a.closer = f

	if err := a.parse(f, fi.Size()); err != nil {
		f.Close()
		return err
	}
	return nil
}

// ReadFrom parses an archive from an arbitrary stream. A base name must
// already be set via SetName, or ReadFrom fails with KindInvalidState.
func (a *Archive) ReadFrom(r io.Reader) error {
	if !a.named {
		return newErr("read from", KindInvalidState, nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return newErr("read from", KindInvalidFormat, err)
	}
	return a.parse(bytes.NewReader(data), int64(len(data)))
}

func (a *Archive) parse(ra io.ReaderAt, size int64) error {
	a.primary = ra
	a.fileSize = size

	hdr, err := readHeader(io.NewSectionReader(ra, 0, size))
	if err != nil {
		return err
	}
	a.hdr = hdr
	a.sections.headerSize = hdr.headerSize()

	treeReader := bufio.NewReader(io.NewSectionReader(ra, a.sections.headerSize, size-a.sections.headerSize))
	store := newEntryStore()
	store.sorted, store.casePolicy = a.store.sorted, a.store.casePolicy
	treeBytes, err := readTree(treeReader, store)
	if err != nil {
		return err
	}
	a.store = store
	a.sections.treeSize = treeBytes
	a.dataRegionStart = a.sections.headerSize + a.sections.treeSize

	if hdr.Version == 1 {
		return nil
	}

	a.sections.fileDataSize = int64(hdr.FileDataSectionSize)
	a.sections.archiveMD5Offset = a.dataRegionStart + a.sections.fileDataSize
	a.sections.archiveMD5Size = int64(hdr.ArchiveMD5SectionSize)
	a.sections.otherMD5Offset = a.sections.archiveMD5Offset + a.sections.archiveMD5Size
	a.sections.otherMD5Size = int64(hdr.OtherMD5SectionSize)
	a.sections.signatureOffset = a.sections.otherMD5Offset + a.sections.otherMD5Size
	a.sections.signatureSize = int64(hdr.SignatureSectionSize)

	if a.sections.archiveMD5Size > 0 {
		table, err := readChunkHashTable(
			io.NewSectionReader(ra, a.sections.archiveMD5Offset, a.sections.archiveMD5Size),
			hdr.ArchiveMD5SectionSize)
		if err != nil {
			return err
		}
		a.hashTable = table
	}

	if hdr.OtherMD5SectionSize == otherMD5SectionSize {
		var buf [otherMD5SectionSize]byte
		if _, err := io.ReadFull(io.NewSectionReader(ra, a.sections.otherMD5Offset, a.sections.otherMD5Size), buf[:]); err != nil {
			return newErr("read other md5", KindInvalidFormat, err)
		}
		om := &otherMD5{Present: true}
		copy(om.Tree[:], buf[0:16])
		copy(om.HashTable[:], buf[16:32])
		copy(om.WholeFile[:], buf[32:48])
		a.other = om
	}

	if a.sections.signatureSize > 0 {
		sig, err := readSignature(io.NewSectionReader(ra, a.sections.signatureOffset, a.sections.signatureSize), hdr.SignatureSectionSize)
		if err != nil {
			return err
		}
		a.signature = sig
	}
	return nil
}

// Optimize switches the entry store into sorted (binary-search) mode.
func (a *Archive) Optimize(policy CasePolicy) error {
	return a.store.Optimize(policy)
}

// Find looks up an entry by logical path.
func (a *Archive) Find(path string) (*Entry, bool) {
	return a.store.Find(path)
}

// Entries iterates every entry in the archive.
func (a *Archive) Entries() iter.Seq[*Entry] {
	return a.store.All
}

// Add registers a new entry carrying data as its full content; the writer
// redistributes it into the data region on Write.
func (a *Archive) Add(path string, data []byte) (*Entry, error) {
	if a.written {
		return nil, newErr("add", KindInvalidState, nil)
	}
	ext, dir, name := Normalize(path)
	e := &Entry{
		FileName:  name,
		Directory: dir,
		Type:      ext,
		CRC32:     crc32.ChecksumIEEE(data),
		SmallData: data,
		pending:   true,
	}
	a.store.Add(e)
	return e, nil
}

// Remove deletes the entry at path, reporting whether one existed.
func (a *Archive) Remove(path string) bool {
	return a.store.Remove(path)
}

// Stats summarizes the entry store.
func (a *Archive) Stats() ArchiveStats {
	stats := ArchiveStats{}
	chunks := map[uint16]bool{}
	for e := range a.store.All {
		stats.FileCount++
		stats.TotalBytes += uint64(e.TotalLength())
		if !e.Embedded() {
			chunks[e.ChunkIndex] = true
		}
	}
	stats.ChunkCount = len(chunks)
	return stats
}

// Close releases the primary file handle and any memory-mapped chunks.
func (a *Archive) Close() error {
	var first error
	if a.chunkCache != nil {
		if err := a.chunkCache.Close(); err != nil {
			first = err
		}
		a.chunkCache = nil
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil && first == nil {
			first = err
		}
		a.closer = nil
	}
	return first
}
