package vpk

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// chunkMapCache maps a chunk (keyed by chunk index, or IndexDir for the
// directory file's own data region) into memory and caches the mapping for
// reuse, releasing everything when the archive is closed.
type chunkMapCache interface {
	Map(key uint16, path string) ([]byte, error)
	Close() error
}

// chunkReaderAt returns a positional reader over the backing store for
// chunkIndex, a closer to release any handle opened for the call, and the
// base offset that record/entry offsets for this chunk are relative to:
// a.dataRegionStart for the embedded region (IndexDir), 0 for an external
// chunk file. IndexDir returns the archive's primary source with a no-op
// closer (the primary source outlives any single resolve call).
func (a *Archive) chunkReaderAt(chunkIndex uint16) (ra io.ReaderAt, closer io.Closer, base int64, err error) {
	if chunkIndex == IndexDir {
		primary, ok := a.primary.(io.ReaderAt)
		if !ok {
			return nil, nil, 0, newErr("resolve chunk", KindInvalidState, nil)
		}
		return primary, io.NopCloser(nil), a.dataRegionStart, nil
	}
	path := a.ref.ChunkPath(chunkIndex)
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, newErr("open chunk", KindNotFound, err)
	}
	return f, f, 0, nil
}

// resolve returns a reader over exactly e.Length bytes at e's offset (the
// embedded data region's start plus e.Offset, or the external chunk file's
// e.Offset directly), and a closer to release any handle opened for the
// call.
func (a *Archive) resolve(e *Entry) (io.Reader, io.Closer, error) {
	ra, closer, base, err := a.chunkReaderAt(e.ChunkIndex)
	if err != nil {
		return nil, nil, err
	}
	return sectionOf(ra, base+int64(e.Offset), int64(e.Length)), closer, nil
}

// resolveMapped implements the memory-mapped access policy: small entries
// (<=4096 bytes) or entries carrying preload bytes bypass the map and
// return an owned in-memory buffer (built by reading through resolve);
// otherwise embedded entries are mapped only when the primary source is a
// real file (falling back to an owned buffer when they can't be mapped),
// and external entries are always mapped (a chunk file that can't be
// mapped is a KindNotFound error). Every mapped region is copied
// out through safeMappedCopy rather than returned as a direct slice, so a
// fault touching a truncated mapping is caught at the one place that
// actually dereferences it.
func (a *Archive) resolveMapped(e *Entry) ([]byte, error) {
	if e.TotalLength() <= 4096 || len(e.SmallData) > 0 {
		return a.readIntoMemory(e)
	}

	if e.Embedded() {
		path, ok := a.primaryFilePath()
		if !ok {
			return a.readIntoMemory(e)
		}
		full, err := a.mapCache().Map(IndexDir, path)
		if err != nil {
			return a.readIntoMemory(e)
		}
		start := a.dataRegionStart + int64(e.Offset)
		end := start + int64(e.Length)
		if end > int64(len(full)) {
			return nil, newErrf("resolve mapped", KindInvalidFormat,
				"entry range [%d,%d) exceeds mapped file of length %d", start, end, len(full))
		}
		return copyMapped(full, start, end)
	}

	path := a.ref.ChunkPath(e.ChunkIndex)
	full, err := a.mapCache().Map(e.ChunkIndex, path)
	if err != nil {
		return nil, newErr("resolve mapped", KindNotFound, err)
	}
	start := int64(e.Offset)
	end := start + int64(e.Length)
	if end > int64(len(full)) {
		return nil, newErrf("resolve mapped", KindInvalidFormat,
			"entry range [%d,%d) exceeds mapped chunk of length %d", start, end, len(full))
	}
	return copyMapped(full, start, end)
}

// copyMapped copies full[start:end] into a freshly allocated buffer,
// guarding the read with safeMappedCopy so a SIGBUS from a truncated or
// concurrently-modified backing file surfaces as an ordinary error instead
// of crashing the process.
func copyMapped(full []byte, start, end int64) ([]byte, error) {
	buf := make([]byte, end-start)
	if err := safeMappedCopy(buf, full[start:end]); err != nil {
		return nil, newErr("resolve mapped", KindInvalidFormat, err)
	}
	return buf, nil
}

// safeMappedCopy copies src into dst, temporarily enabling
// debug.SetPanicOnFault so a page fault reading a memory-mapped region
// (a truncated or corrupted backing file discovered after mapping) is
// recovered into an error rather than crashing the process. The previous
// SetPanicOnFault setting is always restored before returning.
func safeMappedCopy(dst, src []byte) (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("page fault reading mapped region: %v", r)
		}
	}()
	copy(dst, src)
	return nil
}

func (a *Archive) readIntoMemory(e *Entry) ([]byte, error) {
	r, closer, err := a.resolve(e)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	buf := make([]byte, e.Length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, newErr("resolve mapped", KindInvalidFormat, err)
	}
	return buf, nil
}

// primaryFilePath reports the backing path of the archive's primary source,
// when it is a real on-disk file, for mmap purposes.
func (a *Archive) primaryFilePath() (string, bool) {
	f, ok := a.primary.(*os.File)
	if !ok {
		return "", false
	}
	return f.Name(), true
}

func (a *Archive) mapCache() chunkMapCache {
	if a.chunkCache == nil {
		a.chunkCache = newChunkMapCache()
	}
	return a.chunkCache
}
