package vpk

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"hash"
	"io"
	"sort"

	"github.com/zeebo/blake3"
)

// VerifyOption configures a VerifyChunkHashes or VerifyFileCRCs call.
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	progress ProgressFunc
}

// WithVerifyProgress reports a human-readable string per hash record or
// per file CRC check.
func WithVerifyProgress(fn ProgressFunc) VerifyOption {
	return func(c *verifyConfig) { c.progress = fn }
}

// VerifyTree checks the tree-checksum MD5 over [header-size, header-size+
// tree-size). Archives without an other-MD5 block have nothing to check
// and return nil.
func (a *Archive) VerifyTree() error {
	if a.other == nil || !a.other.Present {
		return nil
	}
	sum := md5.New()
	if _, err := io.Copy(sum, io.NewSectionReader(a.primary, a.sections.headerSize, a.sections.treeSize)); err != nil {
		return newErr("verify tree", KindInvalidFormat, err)
	}
	return compareMD5("verify tree", a.other.Tree, sum.Sum(nil))
}

// VerifyHashTable checks the hash-table-checksum MD5 over the per-chunk
// hash section (MD5 of an empty input when the section is absent).
func (a *Archive) VerifyHashTable() error {
	if a.other == nil || !a.other.Present {
		return nil
	}
	sum := md5.New()
	if a.sections.archiveMD5Size > 0 {
		if _, err := io.Copy(sum, io.NewSectionReader(a.primary, a.sections.archiveMD5Offset, a.sections.archiveMD5Size)); err != nil {
			return newErr("verify hash table", KindInvalidFormat, err)
		}
	}
	return compareMD5("verify hash table", a.other.HashTable, sum.Sum(nil))
}

// VerifyWholeFile checks the whole-file-checksum MD5 over everything from
// offset 0 up to (but excluding) the whole-file checksum field itself.
func (a *Archive) VerifyWholeFile() error {
	if a.other == nil || !a.other.Present {
		return nil
	}
	end := a.sections.otherMD5Offset + 32 // tree + hash-table checksums, excluding whole-file's own 16 bytes
	sum := md5.New()
	if _, err := io.Copy(sum, io.NewSectionReader(a.primary, 0, end)); err != nil {
		return newErr("verify whole file", KindInvalidFormat, err)
	}
	return compareMD5("verify whole file", a.other.WholeFile, sum.Sum(nil))
}

func compareMD5(op string, expected [16]byte, actual []byte) error {
	if !bytes.Equal(expected[:], actual) {
		return newErr(op, KindHashMismatch, fmt.Errorf(
			"MD5 mismatch (expected %X, got %X)", expected[:], actual))
	}
	return nil
}

// newChunkHasher returns the streaming hasher for kind, truncated to 16
// bytes at Sum time by the caller (Blake3's extendable output makes
// truncation correct here, unlike MD5/SHA-family truncation pitfalls).
func newChunkHasher(kind HashKind) (hash.Hash, error) {
	switch kind {
	case HashMD5:
		return md5.New(), nil
	case HashBlake3:
		return blake3.New(), nil
	default:
		return nil, newErrf("verify chunk hashes", KindInvalidFormat, "unknown hash kind %d", kind)
	}
}

// VerifyChunkHashes walks every per-chunk hash record, grouped by chunk
// index and ordered by offset within a group, hashing length bytes per
// record and comparing to its checksum. Each chunk file is opened once per
// group and closed when the group changes; a missing external chunk file
// fails with KindNotFound.
func (a *Archive) VerifyChunkHashes(opts ...VerifyOption) error {
	cfg := &verifyConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(a.hashTable) == 0 {
		return nil
	}

	byChunk := map[uint16][]ChunkHash{}
	for _, h := range a.hashTable {
		byChunk[h.ChunkIndex] = append(byChunk[h.ChunkIndex], h)
	}
	indexes := make([]uint16, 0, len(byChunk))
	for idx := range byChunk {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	for _, idx := range indexes {
		group := byChunk[idx]
		sort.Slice(group, func(i, j int) bool { return group[i].Offset < group[j].Offset })

		ra, closer, base, err := a.chunkReaderAt(idx)
		if err != nil {
			return err
		}
		for _, rec := range group {
			hasher, err := newChunkHasher(rec.HashKind)
			if err != nil {
				closer.Close()
				return err
			}
			sr := io.NewSectionReader(ra, base+int64(rec.Offset), int64(rec.Length))
			if _, err := io.Copy(hasher, sr); err != nil {
				closer.Close()
				return newErr("verify chunk hashes", KindInvalidFormat, err)
			}
			sum := hasher.Sum(nil)[:16]
			if !bytes.Equal(sum, rec.Checksum[:]) {
				closer.Close()
				return newErr("verify chunk hashes", KindHashMismatch, fmt.Errorf(
					"chunk %d fraction at offset %d: expected %X, got %X", idx, rec.Offset, rec.Checksum, sum))
			}
			report(cfg.progress, "chunk %d fraction @%d (%d bytes): ok", idx, rec.Offset, rec.Length)
		}
		closer.Close()
	}
	return nil
}

// VerifyFileCRCs extracts every entry with CRC32 validation enabled,
// grouped and ordered by (chunk-index, offset).
func (a *Archive) VerifyFileCRCs(opts ...VerifyOption) error {
	cfg := &verifyConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	entries := make([]*Entry, 0, a.store.Len())
	for e := range a.store.All {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChunkIndex != entries[j].ChunkIndex {
			return entries[i].ChunkIndex < entries[j].ChunkIndex
		}
		return entries[i].Offset < entries[j].Offset
	})

	for _, e := range entries {
		if _, err := a.Extract(e, WithCRCValidation()); err != nil {
			return err
		}
		report(cfg.progress, "%s (%s): crc ok", e.FullPath(), formatBytesSI(uint64(e.TotalLength())))
	}
	return nil
}

// IsSignatureValid reports whether the signature verifies, treating an
// archive with no public key or signature as valid, without raising an
// error.
func (a *Archive) IsSignatureValid() bool {
	if !a.hasSignature() {
		return true
	}
	return a.VerifySignature() == nil
}

// VerifySignature verifies the RSA-SHA256-PKCS#1 signature over bytes
// [0, file-size-before-signature). An archive with no public key or
// signature is trivially valid.
func (a *Archive) VerifySignature() error {
	if !a.hasSignature() {
		return nil
	}
	r := io.NewSectionReader(a.primary, 0, a.sections.signatureOffset)
	return verifyRSASHA256(a.signature, r)
}

func (a *Archive) hasSignature() bool {
	return a.signature != nil && len(a.signature.PublicKey) > 0 && len(a.signature.Bytes) > 0
}
