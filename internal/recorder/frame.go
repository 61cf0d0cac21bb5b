package recorder

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/google/uuid"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Frame layout, little endian:
//
//	magic[4] version[2] headerSize[2] kind[2] flags[2] payloadLen[4] ts[8] eventID[16]
//
// followed by the payload and a CRC-32C of header and payload.
const (
	frameVersion      uint16 = 1
	frameHeaderSize          = 40
	frameChecksumSize        = 4
)

const maxPayloadLen = uint64(^uint32(0))

var (
	frameMagic = [4]byte{'E', 'V', 'J', '1'}
	crcTable   = crc32.MakeTable(crc32.Castagnoli)
)

// Record is one journal entry. Payload holds the codec envelope of the event.
type Record struct {
	Kind      schema.EventKind
	EventID   uuid.UUID
	Timestamp time.Time
	Payload   []byte
}

func encodeHeader(dst []byte, rec Record) {
	_ = dst[frameHeaderSize-1]
	copy(dst[0:4], frameMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], frameVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(frameHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(rec.Kind))
	binary.LittleEndian.PutUint16(dst[10:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(len(rec.Payload)))
	var ts int64
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.UnixNano()
	}
	binary.LittleEndian.PutUint64(dst[16:24], uint64(ts))
	copy(dst[24:40], rec.EventID[:])
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeHeader(src []byte) (Record, uint32, error) {
	if len(src) < frameHeaderSize {
		return Record{}, 0, errors.Wrapf(exception.ErrJournalCorrupted, "header size %d", len(src))
	}
	if !bytes.Equal(src[0:4], frameMagic[:]) {
		return Record{}, 0, errors.Wrapf(exception.ErrJournalCorrupted, "magic %q", src[0:4])
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != frameVersion {
		return Record{}, 0, errors.Wrapf(exception.ErrJournalCorrupted, "version %d", ver)
	}
	if size := binary.LittleEndian.Uint16(src[6:8]); size != frameHeaderSize {
		return Record{}, 0, errors.Wrapf(exception.ErrJournalCorrupted, "header size %d", size)
	}
	rec := Record{Kind: schema.EventKind(binary.LittleEndian.Uint16(src[8:10]))}
	if ts := int64(binary.LittleEndian.Uint64(src[16:24])); ts != 0 {
		rec.Timestamp = time.Unix(0, ts).UTC()
	}
	copy(rec.EventID[:], src[24:40])
	return rec, binary.LittleEndian.Uint32(src[12:16]), nil
}
