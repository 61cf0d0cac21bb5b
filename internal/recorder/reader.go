package recorder

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes journal records sequentially.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	payload   []byte
}

// NewReader wraps r with journal decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, frameHeaderSize),
	}
}

// Next returns the next record. The payload is only valid until the next call to Next. A clean end of
// input returns io.EOF and a record cut short returns io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return Record{}, io.EOF
		}
		return Record{}, err
	}

	rec, payloadLen, err := decodeHeader(r.headerBuf)
	if err != nil {
		return Record{}, err
	}
	if r.opts.MaxPayloadSize > 0 && payloadLen > uint32(r.opts.MaxPayloadSize) {
		return Record{}, errors.Wrapf(exception.ErrJournalPayloadTooLarge, "%d bytes", payloadLen)
	}

	if cap(r.payload) < int(payloadLen) {
		r.payload = make([]byte, payloadLen)
	}
	r.payload = r.payload[:payloadLen]
	if _, err := io.ReadFull(r.r, r.payload); err != nil {
		return Record{}, unexpected(err)
	}

	var sum [frameChecksumSize]byte
	if _, err := io.ReadFull(r.r, sum[:]); err != nil {
		return Record{}, unexpected(err)
	}
	if !r.opts.DisableChecksum && binary.LittleEndian.Uint32(sum[:]) != checksum(r.headerBuf, r.payload) {
		return Record{}, errors.Wrapf(exception.ErrJournalCorrupted, "checksum mismatch for event %s", rec.EventID)
	}

	rec.Payload = r.payload
	return rec, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
