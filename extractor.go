package vpk

import (
	"fmt"
	"hash/crc32"
)

// ExtractOption configures a single Extract call.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	validateCRC bool
	buf         []byte
}

// WithCRCValidation enables a CRC32 check of the extracted bytes against
// the entry's recorded checksum.
func WithCRCValidation() ExtractOption {
	return func(c *extractConfig) { c.validateCRC = true }
}

// WithBuffer supplies the destination buffer; it must be at least
// e.TotalLength() bytes or Extract fails with KindOutOfRange.
func WithBuffer(buf []byte) ExtractOption {
	return func(c *extractConfig) { c.buf = buf }
}

// Extract materializes e's bytes: small-data (if any) concatenated with
// length bytes read from the resolved stream, optionally checked against
// the entry's recorded CRC32.
func (a *Archive) Extract(e *Entry, opts ...ExtractOption) ([]byte, error) {
	cfg := &extractConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	total := int(e.TotalLength())
	var out []byte
	if cfg.buf != nil {
		if len(cfg.buf) < total {
			return nil, newErrf("extract", KindOutOfRange,
				"buffer of %d bytes is smaller than total length %d", len(cfg.buf), total)
		}
		out = cfg.buf[:total]
	} else {
		out = make([]byte, total)
	}

	n := copy(out, e.SmallData)
	if e.Length > 0 {
		body, err := a.resolveMapped(e)
		if err != nil {
			return nil, err
		}
		copy(out[n:], body)
	}

	if cfg.validateCRC {
		actual := crc32.ChecksumIEEE(out)
		if actual != e.CRC32 {
			return nil, newErr("extract", KindCRCMismatch, fmt.Errorf(
				"CRC32 mismatch for read data (expected %08X, got %08X).", e.CRC32, actual))
		}
	}
	return out, nil
}
