package vpk

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"io"
)

// SignatureKind distinguishes the two on-disk signature block layouts.
type SignatureKind int32

const (
	// SignatureFullFile is the legacy layout: a bare public key followed by
	// a signature over the whole file up to the signature block.
	SignatureFullFile SignatureKind = 0
	// SignatureFileChecksumOnly is the newer layout, prefixed with a
	// sentinel equal to Magic and carrying its own kind/size/reserved
	// fields.
	SignatureFileChecksumOnly SignatureKind = 1
)

// Signature holds the parsed public key and signature bytes, when present.
type Signature struct {
	Kind      SignatureKind
	PublicKey []byte
	Bytes     []byte
}

// readSignature parses the signature block. A zero sectionSize means the
// block is absent; readSignature then returns (nil, nil).
//
// Detection of the new file-checksum-only layout peeks the first 32-bit
// value: if it equals Magic (and the section is large enough to hold the
// fixed 20-byte prefix), the rest is parsed as
// kind/public-key-size/signature-size/reserved followed by the two
// variable buffers. Otherwise the first value read is reinterpreted as the
// legacy layout's public-key-size.
func readSignature(r io.Reader, sectionSize uint32) (*Signature, error) {
	if sectionSize == 0 {
		return nil, nil
	}
	if sectionSize < 4 {
		return nil, newErrf("read signature", KindInvalidFormat,
			"signature section size %d is too small", sectionSize)
	}

	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, newErr("read signature", KindInvalidFormat, err)
	}
	first := binary.LittleEndian.Uint32(u32[:])

	if sectionSize >= 20 && first == Magic {
		return readSignatureFileChecksumOnly(r, sectionSize)
	}
	return readSignatureFullFile(r, first)
}

func readSignatureFileChecksumOnly(r io.Reader, sectionSize uint32) (*Signature, error) {
	var rest [16]byte
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return nil, newErr("read signature", KindInvalidFormat, err)
	}
	kind := int32(binary.LittleEndian.Uint32(rest[0:4]))
	pkSize := int32(binary.LittleEndian.Uint32(rest[4:8]))
	sigSize := int32(binary.LittleEndian.Uint32(rest[8:12]))
	// rest[12:16] is reserved.

	if pkSize < 0 || sigSize < 0 || uint32(20+pkSize+sigSize) != sectionSize {
		return nil, newErrf("read signature", KindInvalidFormat,
			"inconsistent signature section sizes (pk=%d sig=%d section=%d)", pkSize, sigSize, sectionSize)
	}

	s := &Signature{Kind: SignatureKind(kind)}
	if pkSize > 0 {
		s.PublicKey = make([]byte, pkSize)
		if _, err := io.ReadFull(r, s.PublicKey); err != nil {
			return nil, newErr("read signature", KindInvalidFormat, err)
		}
	}
	if sigSize > 0 {
		s.Bytes = make([]byte, sigSize)
		if _, err := io.ReadFull(r, s.Bytes); err != nil {
			return nil, newErr("read signature", KindInvalidFormat, err)
		}
	}
	return s, nil
}

func readSignatureFullFile(r io.Reader, pkSize uint32) (*Signature, error) {
	s := &Signature{Kind: SignatureFullFile}
	if pkSize > 0 {
		s.PublicKey = make([]byte, pkSize)
		if _, err := io.ReadFull(r, s.PublicKey); err != nil {
			return nil, newErr("read signature", KindInvalidFormat, err)
		}
	}

	var sigSizeBuf [4]byte
	if _, err := io.ReadFull(r, sigSizeBuf[:]); err != nil {
		return nil, newErr("read signature", KindInvalidFormat, err)
	}
	sigSize := int32(binary.LittleEndian.Uint32(sigSizeBuf[:]))
	if sigSize < 0 {
		return nil, newErrf("read signature", KindInvalidFormat, "negative signature size %d", sigSize)
	}
	if sigSize > 0 {
		s.Bytes = make([]byte, sigSize)
		if _, err := io.ReadFull(r, s.Bytes); err != nil {
			return nil, newErr("read signature", KindInvalidFormat, err)
		}
	}
	return s, nil
}

// verifyRSASHA256 verifies that sig.Bytes is a PKCS#1 v1.5 RSA-SHA256
// signature over signed, using the SubjectPublicKeyInfo-encoded key in
// sig.PublicKey.
func verifyRSASHA256(sig *Signature, signed io.Reader) error {
	pub, err := x509.ParsePKIXPublicKey(sig.PublicKey)
	if err != nil {
		return newErr("verify signature", KindSignatureInvalid, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return newErrf("verify signature", KindSignatureInvalid, "public key is not RSA")
	}

	h := sha256.New()
	if _, err := io.Copy(h, signed); err != nil {
		return newErr("verify signature", KindSignatureInvalid, err)
	}
	digest := h.Sum(nil)

	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, digest, sig.Bytes); err != nil {
		return newErr("verify signature", KindSignatureInvalid, err)
	}
	return nil
}
