package vpk

import (
	"io"
)

// countWriter is an io.Writer that only tracks the number of bytes written,
// used to compute the tree size before the header can be finalized.
type countWriter struct {
	N int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	c.N += int64(len(p))
	return len(p), nil
}

// readCString reads a null-terminated UTF-8 string from r, appending bytes
// into scratch (which is reused across calls by the tree walk to avoid an
// allocation per path component) and returning the decoded string.
func readCString(r io.ByteReader, scratch *[]byte) (string, error) {
	*scratch = (*scratch)[:0]
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		*scratch = append(*scratch, b)
	}
	return string(*scratch), nil
}

// writeCString writes s followed by a null byte.
func writeCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// sectionOf returns a positional sub-range view over a ReaderAt, composing
// safely with concurrent reads since it never mutates shared seek state.
func sectionOf(base io.ReaderAt, offset, length int64) *io.SectionReader {
	return io.NewSectionReader(base, offset, length)
}
