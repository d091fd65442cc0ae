package ingest

// reader.go holds the byte-level readers used before CSV parsing:
//
//   - BOMSkippingReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - CountingReader: tracks bytes read and enforces the upload size limit

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrTooLarge is returned once more than the configured limit has been read.
var ErrTooLarge = errors.New("file exceeds the maximum upload size")

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
// Spreadsheet tools on Windows add one to every CSV they save.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call peeks at three bytes and discards
// them if they are a BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// CountingReader tracks bytes read and fails with ErrTooLarge past Limit.
// A Limit of zero disables the check.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader creates a counting reader with an optional size limit.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrTooLarge
	}
	return n, err
}
