package vpk

import (
	"encoding/binary"
	"io"
)

// header holds the fixed fields at the start of every archive.
type header struct {
	Magic   uint32
	Version uint32

	TreeSize uint32

	// v2 only; zero when Version == 1.
	FileDataSectionSize   uint32
	ArchiveMD5SectionSize uint32
	OtherMD5SectionSize   uint32
	SignatureSectionSize  uint32
}

// headerSize returns the on-disk size of the header for this version.
func (h *header) headerSize() int64 {
	if h.Version == 1 {
		return 12
	}
	return 28
}

// readHeader parses the fixed header from r. Version 0x00030002 (Respawn's
// dialect) is rejected with KindUnsupported; any other unrecognized
// version is KindInvalidVersion; any magic other than [Magic] is
// KindInvalidMagic.
func readHeader(r io.Reader) (*header, error) {
	var buf [28]byte
	if _, err := io.ReadFull(r, buf[:12]); err != nil {
		return nil, newErr("read header", KindInvalidFormat, err)
	}

	h := &header{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	if h.Magic != Magic {
		return nil, newErrf("read header", KindInvalidMagic,
			"expected %08X, got %08X", Magic, h.Magic)
	}

	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	switch h.Version {
	case respawnVersion:
		return nil, newErrf("read header", KindUnsupported,
			"version %08X (Respawn dialect) is not supported", h.Version)
	case 1, 2:
		// ok
	default:
		return nil, newErrf("read header", KindInvalidVersion,
			"unrecognized version %d", h.Version)
	}

	h.TreeSize = binary.LittleEndian.Uint32(buf[8:12])

	if h.Version == 2 {
		if _, err := io.ReadFull(r, buf[12:28]); err != nil {
			return nil, newErr("read header", KindInvalidFormat, err)
		}
		h.FileDataSectionSize = binary.LittleEndian.Uint32(buf[12:16])
		h.ArchiveMD5SectionSize = binary.LittleEndian.Uint32(buf[16:20])
		h.OtherMD5SectionSize = binary.LittleEndian.Uint32(buf[20:24])
		h.SignatureSectionSize = binary.LittleEndian.Uint32(buf[24:28])
	}
	return h, nil
}

// writeHeader emits the fixed header. This package only ever writes
// version 2; writing a version-1 archive is unsupported.
func writeHeader(w io.Writer, h *header) error {
	var buf [28]byte
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], 2)
	binary.LittleEndian.PutUint32(buf[8:12], h.TreeSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.FileDataSectionSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.ArchiveMD5SectionSize)
	binary.LittleEndian.PutUint32(buf[20:24], h.OtherMD5SectionSize)
	binary.LittleEndian.PutUint32(buf[24:28], h.SignatureSectionSize)
	_, err := w.Write(buf[:])
	return err
}
