package vpk

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
)

// WriteOption configures a Write call.
type WriteOption func(*writeConfig)

type writeConfig struct {
	chunkSize int64
	chunked   bool
	progress  ProgressFunc
}

// WithChunkSize enables multi-chunk output with the given maximum chunk
// size; omitting this option writes a single self-contained file with
// every entry embedded in the directory file.
func WithChunkSize(n int64) WriteOption {
	return func(c *writeConfig) { c.chunkSize = n; c.chunked = true }
}

// WithWriteProgress reports a human-readable string at well-defined points
// during Write (after the tree, after each chunk is hashed).
func WithWriteProgress(fn ProgressFunc) WriteOption {
	return func(c *writeConfig) { c.progress = fn }
}

// Placement is the chunk index and offset the writer assigned to an entry.
type Placement struct {
	ChunkIndex uint16
	Offset     uint32
}

// computePlacement assigns each entry, in insertion order, its chunk index
// and offset. In single-file mode every entry is embedded (IndexDir) at a
// monotonically increasing offset; in chunked mode a simple next-fit packs
// entries into successive chunks, starting a new chunk once the running
// offset reaches or exceeds chunkSize, without ever splitting a single
// entry across two chunks (so a chunk can end up larger than chunkSize).
func computePlacement(entries []*Entry, chunkSize int64, chunked bool) (map[*Entry]Placement, int, error) {
	placement := make(map[*Entry]Placement, len(entries))

	if !chunked {
		var offset uint32
		for _, e := range entries {
			placement[e] = Placement{ChunkIndex: IndexDir, Offset: offset}
			offset += e.TotalLength()
		}
		return placement, 0, nil
	}

	var chunkIdx uint16
	var offset uint32
	var maxChunkIdx uint16
	for _, e := range entries {
		placement[e] = Placement{ChunkIndex: chunkIdx, Offset: offset}
		if chunkIdx > maxChunkIdx {
			maxChunkIdx = chunkIdx
		}
		offset += e.TotalLength()
		if int64(offset) >= chunkSize {
			if chunkIdx >= MaxChunks-1 {
				return nil, 0, newErrf("write", KindOutOfRange, "too many chunks (max %d)", MaxChunks)
			}
			chunkIdx++
			offset = 0
		}
	}
	// chunkIdx may have been bumped past the last entry actually placed (the
	// last entry filled or overflowed its chunk); chunkCount only needs to cover
	// chunks that got an entry.
	return placement, int(maxChunkIdx) + 1, nil
}

// dataBytesOf returns e's full content: SmallData directly for an entry
// still pending placement (added via Archive.Add), or the result of
// extracting it from whatever source it currently belongs to otherwise.
func (a *Archive) dataBytesOf(e *Entry) ([]byte, error) {
	if e.pending {
		return e.SmallData, nil
	}
	return a.Extract(e)
}

func (a *Archive) writeEmbeddedData(w io.Writer, entries []*Entry) (int64, error) {
	var n int64
	for _, e := range entries {
		data, err := a.dataBytesOf(e)
		if err != nil {
			return 0, err
		}
		if _, err := w.Write(data); err != nil {
			return 0, newErr("write", KindInvalidFormat, err)
		}
		n += int64(len(data))
	}
	return n, nil
}

// writeChunkData creates one file per chunk index referenced by placement
// and writes each entry's bytes into the chunk it was assigned, in
// placement order (which is insertion order within a chunk, since
// next-fit never revisits a chunk once it moves on). On failure it still
// returns the paths of the chunk files it created (empty strings for chunks
// not reached), so the caller can clean them up.
func (a *Archive) writeChunkData(ref ArchiveRef, entries []*Entry, placement map[*Entry]Placement, chunkCount int) ([]string, error) {
	paths := make([]string, chunkCount)
	files := make([]*os.File, chunkCount)
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()

	for _, e := range entries {
		p := placement[e]
		f := files[p.ChunkIndex]
		if f == nil {
			path := ref.ChunkPath(p.ChunkIndex)
			nf, err := os.Create(path)
			if err != nil {
				return paths, newErr("write", KindInvalidFormat, err)
			}
			files[p.ChunkIndex] = nf
			paths[p.ChunkIndex] = path
			f = nf
		}
		data, err := a.dataBytesOf(e)
		if err != nil {
			return paths, err
		}
		if _, err := f.Write(data); err != nil {
			return paths, newErr("write", KindInvalidFormat, err)
		}
	}
	return paths, nil
}

// hashFractions splits r into successive MaxChunkHashFractionSize fractions
// (the last may be shorter) and MD5-hashes each one, recording it against
// chunkIndex.
func hashFractions(r io.Reader, chunkIndex uint16) ([]ChunkHash, error) {
	var records []ChunkHash
	buf := make([]byte, MaxChunkHashFractionSize)
	var offset int64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			records = append(records, ChunkHash{
				ChunkIndex: chunkIndex,
				HashKind:   HashMD5,
				Offset:     uint32(offset),
				Length:     uint32(n),
				Checksum:   md5.Sum(buf[:n]),
			})
			offset += int64(n)
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, err
		}
	}
	return records, nil
}

// writeOtherMD5 computes and appends the tree, hash-table, and whole-file
// MD5 summaries in that order, reading back the bytes just written via f's
// ReaderAt side.
func writeOtherMD5(f *os.File, headerSize, treeSize, fileDataSize, archiveMD5Size int64) error {
	treeSum := md5.New()
	if _, err := io.Copy(treeSum, io.NewSectionReader(f, headerSize, treeSize)); err != nil {
		return newErr("write", KindInvalidFormat, err)
	}

	hashTableOffset := headerSize + treeSize + fileDataSize
	hashSum := md5.New()
	if archiveMD5Size > 0 {
		if _, err := io.Copy(hashSum, io.NewSectionReader(f, hashTableOffset, archiveMD5Size)); err != nil {
			return newErr("write", KindInvalidFormat, err)
		}
	}

	if _, err := f.Write(treeSum.Sum(nil)); err != nil {
		return newErr("write", KindInvalidFormat, err)
	}
	if _, err := f.Write(hashSum.Sum(nil)); err != nil {
		return newErr("write", KindInvalidFormat, err)
	}

	wholeFileEnd := hashTableOffset + archiveMD5Size + 32
	wholeSum := md5.New()
	if _, err := io.Copy(wholeSum, io.NewSectionReader(f, 0, wholeFileEnd)); err != nil {
		return newErr("write", KindInvalidFormat, err)
	}
	if _, err := f.Write(wholeSum.Sum(nil)); err != nil {
		return newErr("write", KindInvalidFormat, err)
	}
	return nil
}

// truncateAndRemove best-effort cleans up a destination file after a
// failed write.
func truncateAndRemove(path string) {
	if f, err := os.OpenFile(path, os.O_WRONLY, 0); err == nil {
		f.Truncate(0)
		f.Close()
	}
	os.Remove(path)
}

// Write lays out a new archive at dirPath: a placeholder header, the tree,
// the file data (embedded in the directory file, or split across chunk
// files), the per-chunk hash table, and the three MD5 summaries. The
// header is written twice — once as a placeholder before section sizes
// are known, then patched once they are — and any file this call created
// is truncated and removed if a later step fails.
func (a *Archive) Write(dirPath string, opts ...WriteOption) error {
	cfg := &writeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if a.store.Len() == 0 {
		return newErr("write", KindInvalidState, nil)
	}
	if cfg.chunked && cfg.chunkSize <= 0 {
		return newErr("write", KindOutOfRange, fmt.Errorf("chunk size %d is not positive", cfg.chunkSize))
	}

	ref := ParseRef(dirPath)
	entries := a.store.InsertionOrder()

	placement, chunkCount, err := computePlacement(entries, cfg.chunkSize, cfg.chunked)
	if err != nil {
		return err
	}

	var opened []string
	fail := func(err error) error {
		for _, p := range opened {
			truncateAndRemove(p)
		}
		return err
	}

	dirPathFinal := ref.DirPath()
	dirFile, err := os.Create(dirPathFinal)
	if err != nil {
		return newErr("write", KindInvalidFormat, err)
	}
	opened = append(opened, dirPathFinal)

	ph := &header{Version: 2}
	if err := writeHeader(dirFile, ph); err != nil {
		dirFile.Close()
		return fail(newErr("write", KindInvalidFormat, err))
	}

	treeSz, err := writeTree(dirFile, a.store, placement)
	if err != nil {
		dirFile.Close()
		return fail(err)
	}
	report(cfg.progress, "wrote tree (%s)", formatBytesSI(uint64(treeSz)))

	headerSize := ph.headerSize()
	var fileDataSize int64
	var hashTable []ChunkHash

	if !cfg.chunked {
		n, err := a.writeEmbeddedData(dirFile, entries)
		if err != nil {
			dirFile.Close()
			return fail(err)
		}
		fileDataSize = n
		recs, err := hashFractions(io.NewSectionReader(dirFile, headerSize+treeSz, fileDataSize), IndexDir)
		if err != nil {
			dirFile.Close()
			return fail(newErr("write", KindInvalidFormat, err))
		}
		hashTable = recs
	} else {
		chunkPaths, err := a.writeChunkData(ref, entries, placement, chunkCount)
		opened = append(opened, chunkPaths...)
		if err != nil {
			dirFile.Close()
			return fail(err)
		}
		for idx, path := range chunkPaths {
			cf, err := os.Open(path)
			if err != nil {
				dirFile.Close()
				return fail(newErr("write", KindInvalidFormat, err))
			}
			recs, err := hashFractions(cf, uint16(idx))
			cf.Close()
			if err != nil {
				dirFile.Close()
				return fail(newErr("write", KindInvalidFormat, err))
			}
			hashTable = append(hashTable, recs...)
			report(cfg.progress, "hashed chunk %d (%s)", idx, formatBytesSI(uint64(chunkSizeOf(recs))))
		}
	}

	if err := writeChunkHashTable(dirFile, hashTable); err != nil {
		dirFile.Close()
		return fail(newErr("write", KindInvalidFormat, err))
	}
	archiveMD5Size := int64(len(hashTable)) * chunkHashRecordSize

	if err := writeOtherMD5(dirFile, headerSize, treeSz, fileDataSize, archiveMD5Size); err != nil {
		dirFile.Close()
		return fail(err)
	}

	ph.TreeSize = uint32(treeSz)
	ph.FileDataSectionSize = uint32(fileDataSize)
	ph.ArchiveMD5SectionSize = uint32(archiveMD5Size)
	ph.OtherMD5SectionSize = otherMD5SectionSize
	ph.SignatureSectionSize = 0
	if _, err := dirFile.Seek(0, io.SeekStart); err != nil {
		dirFile.Close()
		return fail(newErr("write", KindInvalidFormat, err))
	}
	if err := writeHeader(dirFile, ph); err != nil {
		dirFile.Close()
		return fail(newErr("write", KindInvalidFormat, err))
	}
	if _, err := dirFile.Seek(0, io.SeekEnd); err != nil {
		dirFile.Close()
		return fail(newErr("write", KindInvalidFormat, err))
	}

	if err := writeOtherMD5(dirFile, headerSize, treeSz, fileDataSize, archiveMD5Size); err != nil {
		dirFile.Close()
		return fail(err)
	}

	if err := dirFile.Close(); err != nil {
		return fail(newErr("write", KindInvalidFormat, err))
	}

	a.finalizeEntries(entries, placement)
	a.ref = ref
	a.named = true
	a.written = true
	return nil
}

func chunkSizeOf(recs []ChunkHash) int64 {
	var n int64
	for _, r := range recs {
		n += int64(r.Length)
	}
	return n
}

// finalizeEntries updates every written entry to reflect its final
// on-disk placement, clearing the pending/preload state Add left it in.
func (a *Archive) finalizeEntries(entries []*Entry, placement map[*Entry]Placement) {
	for _, e := range entries {
		p := placement[e]
		e.Length = e.TotalLength()
		e.ChunkIndex = p.ChunkIndex
		e.Offset = p.Offset
		e.SmallData = nil
		e.pending = false
	}
}
