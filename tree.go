package vpk

import (
	"bufio"
	"encoding/binary"
	"io"
	"sort"
)

// entryRecordSize is the fixed portion of an on-disk entry record (crc32,
// small-data-size, chunk-index, offset, length, terminator).
const entryRecordSize = 4 + 2 + 2 + 4 + 4 + 2

// readTree parses the three-level nested tree (extension, then directory,
// then file name, each a null-terminated string list) from r, adding each
// entry to store. It returns the number of bytes consumed, which the
// caller uses as the realized tree size rather than trusting the header's
// declared size.
func readTree(r *bufio.Reader, store *entryStore) (int64, error) {
	cw := &countingByteReader{r: r}
	var scratch []byte

	for {
		ext, err := readCString(cw, &scratch)
		if err != nil {
			return cw.n, newErr("read tree extension", KindInvalidFormat, err)
		}
		if ext == "" {
			break
		}
		for {
			dir, err := readCString(cw, &scratch)
			if err != nil {
				return cw.n, newErr("read tree directory", KindInvalidFormat, err)
			}
			if dir == "" {
				break
			}
			for {
				name, err := readCString(cw, &scratch)
				if err != nil {
					return cw.n, newErr("read tree filename", KindInvalidFormat, err)
				}
				if name == "" {
					break
				}
				e, err := readEntryRecord(cw, ext, dir, name)
				if err != nil {
					return cw.n, err
				}
				store.Add(e)
			}
		}
	}
	store.sortAll()
	return cw.n, nil
}

// countingByteReader wraps a bufio.Reader (the only thing readCString
// needs: ReadByte) while tracking bytes consumed, so the caller can
// recompute the realized tree size.
type countingByteReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingByteReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

func (c *countingByteReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// readEntryRecord reads one fixed entry record plus its preload bytes.
func readEntryRecord(r io.Reader, ext, dir, name string) (*Entry, error) {
	var buf [entryRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, newErr("read tree entry", KindInvalidFormat, err)
	}

	e := &Entry{Type: ext, Directory: dir, FileName: name}
	e.CRC32 = binary.LittleEndian.Uint32(buf[0:4])
	smallDataSize := binary.LittleEndian.Uint16(buf[4:6])
	e.ChunkIndex = binary.LittleEndian.Uint16(buf[6:8])
	e.Offset = binary.LittleEndian.Uint32(buf[8:12])
	e.Length = binary.LittleEndian.Uint32(buf[12:16])
	terminator := binary.LittleEndian.Uint16(buf[16:18])
	if terminator != treeTerminator {
		return nil, newErrf("read tree entry", KindInvalidFormat,
			"expected terminator %04X, got %04X", treeTerminator, terminator)
	}

	if smallDataSize > 0 {
		e.SmallData = make([]byte, smallDataSize)
		if _, err := io.ReadFull(r, e.SmallData); err != nil {
			return nil, newErr("read tree entry preload", KindInvalidFormat, err)
		}
	}
	return e, nil
}

// writeTree emits the three-level nested tree for every entry in store,
// using each entry's assigned placement (chunk index/offset) and total
// length. Preload bytes are never re-emitted on write: small-data-size is
// always 0 and the preload content is folded into the data region by the
// writer. Extensions and directories are emitted in a deterministic sorted
// order, independent of Add order.
func writeTree(w io.Writer, store *entryStore, placement map[*Entry]Placement) (int64, error) {
	cw := &countWriter{}
	mw := io.MultiWriter(w, cw)

	exts := make([]string, 0, len(store.byExt))
	for ext := range store.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	for _, ext := range exts {
		if err := writeCString(mw, ext); err != nil {
			return cw.N, err
		}
		byDir := groupByDirectory(store.byExt[ext])
		dirs := make([]string, 0, len(byDir))
		for dir := range byDir {
			dirs = append(dirs, dir)
		}
		sort.Strings(dirs)

		for _, dir := range dirs {
			if err := writeCString(mw, dir); err != nil {
				return cw.N, err
			}
			entries := byDir[dir]
			sort.Slice(entries, func(i, j int) bool { return entries[i].FileName < entries[j].FileName })
			for _, e := range entries {
				if err := writeCString(mw, e.FileName); err != nil {
					return cw.N, err
				}
				p := placement[e]
				if err := writeEntryRecord(mw, e, p); err != nil {
					return cw.N, err
				}
			}
			if err := writeByte(mw, 0); err != nil { // end filename list
				return cw.N, err
			}
		}
		if err := writeByte(mw, 0); err != nil { // end directory list
			return cw.N, err
		}
	}
	if err := writeByte(mw, 0); err != nil { // end extension list
		return cw.N, err
	}
	return cw.N, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func groupByDirectory(entries []*Entry) map[string][]*Entry {
	m := map[string][]*Entry{}
	for _, e := range entries {
		m[e.Directory] = append(m[e.Directory], e)
	}
	return m
}

func writeEntryRecord(w io.Writer, e *Entry, p Placement) error {
	var buf [entryRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.CRC32)
	binary.LittleEndian.PutUint16(buf[4:6], 0) // small-data-size always 0 on write
	binary.LittleEndian.PutUint16(buf[6:8], p.ChunkIndex)
	binary.LittleEndian.PutUint32(buf[8:12], p.Offset)
	binary.LittleEndian.PutUint32(buf[12:16], e.TotalLength())
	binary.LittleEndian.PutUint16(buf[16:18], treeTerminator)
	_, err := w.Write(buf[:])
	return err
}

