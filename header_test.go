package vpk

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHeaderRoundTripVersion2(t *testing.T) {
	h := &header{
		TreeSize:              1234,
		FileDataSectionSize:   5678,
		ArchiveMD5SectionSize: 48,
		OtherMD5SectionSize:   otherMD5SectionSize,
		SignatureSectionSize:  0,
	}
	var buf bytes.Buffer
	if err := writeHeader(&buf, h); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	if buf.Len() != 28 {
		t.Fatalf("wrote %d bytes, want 28", buf.Len())
	}

	got, err := readHeader(&buf)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if got.Version != 2 || got.TreeSize != h.TreeSize ||
		got.FileDataSectionSize != h.FileDataSectionSize ||
		got.ArchiveMD5SectionSize != h.ArchiveMD5SectionSize ||
		got.OtherMD5SectionSize != h.OtherMD5SectionSize {
		t.Errorf("round-tripped header = %+v, want fields matching %+v", got, h)
	}
	if got.headerSize() != 28 {
		t.Errorf("headerSize() = %d, want 28", got.headerSize())
	}
}

func TestHeaderVersion1(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(Magic))
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, uint32(999))

	h, err := readHeader(&buf)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.Version != 1 || h.TreeSize != 999 {
		t.Errorf("got %+v, want version 1, tree size 999", h)
	}
	if h.headerSize() != 12 {
		t.Errorf("headerSize() = %d, want 12", h.headerSize())
	}
}

func TestHeaderInvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0xDEADBEEF))
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(make([]byte, 16))

	if _, err := readHeader(&buf); !IsInvalidMagic(err) {
		t.Errorf("readHeader with bad magic = %v, want KindInvalidMagic", err)
	}
}

func TestHeaderInvalidVersion(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(Magic))
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	if _, err := readHeader(&buf); !IsInvalidVersion(err) {
		t.Errorf("readHeader with version 3 = %v, want KindInvalidVersion", err)
	}
}

func TestHeaderRespawnDialectUnsupported(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(Magic))
	binary.Write(&buf, binary.LittleEndian, uint32(0x00030002))
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	if _, err := readHeader(&buf); !IsUnsupported(err) {
		t.Errorf("readHeader with Respawn dialect version = %v, want KindUnsupported", err)
	}
}
