// Package wire frames engine values for byte-oriented backends. Every frame
// starts with a magic prefix and a version so foreign or corrupt bytes are
// rejected instead of misdecoded; framing is strict and trailing bytes are an
// error.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version byte = 1

	KindRecord byte = 1
	KindList   byte = 2
	KindIDSet  byte = 3
	KindOpaque byte = 4
)

var (
	ErrCorrupt = errors.New("recache: corrupt entry")
	magic4     = [...]byte{'R', 'E', 'C', 'V'}
)

const hdrLen = 4 + 1 + 1 // magic | ver | kind

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Kind peeks at the frame kind without decoding the body.
func Kind(b []byte) (byte, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return 0, ErrCorrupt
	}
	switch k := b[5]; k {
	case KindRecord, KindList, KindIDSet, KindOpaque:
		return k, nil
	default:
		return 0, ErrCorrupt
	}
}

func header(buf *bytes.Buffer, kind byte) {
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)
}

// Item is one tagged record body inside a record or list frame.
type Item struct {
	Tag  string
	Body []byte
}

func putItem(buf *bytes.Buffer, it Item) error {
	if l := len(it.Tag); l == 0 || l > 0xFFFF {
		return ErrCorrupt
	}
	var u2 [2]byte
	var u4 [4]byte
	binary.BigEndian.PutUint16(u2[:], uint16(len(it.Tag)))
	buf.Write(u2[:])
	buf.WriteString(it.Tag)
	binary.BigEndian.PutUint32(u4[:], uint32(len(it.Body)))
	buf.Write(u4[:])
	buf.Write(it.Body)
	return nil
}

func getItem(b []byte, off int) (Item, int, error) {
	if off+2 > len(b) {
		return Item{}, 0, ErrCorrupt
	}
	tlen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if tlen <= 0 || tlen > len(b)-off {
		return Item{}, 0, ErrCorrupt
	}
	tag := string(b[off : off+tlen])
	off += tlen
	if off+4 > len(b) {
		return Item{}, 0, ErrCorrupt
	}
	blen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if blen < 0 || blen > len(b)-off {
		return Item{}, 0, ErrCorrupt
	}
	body := b[off : off+blen]
	off += blen
	return Item{Tag: tag, Body: body}, off, nil
}

// Record: magic(4) | ver(1) | kind(1) | tagLen(u16) | tag | bodyLen(u32) | body
func EncodeRecord(it Item) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(hdrLen + 2 + len(it.Tag) + 4 + len(it.Body))
	header(&buf, KindRecord)
	if err := putItem(&buf, it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeRecord(b []byte) (Item, error) {
	if k, err := Kind(b); err != nil || k != KindRecord {
		return Item{}, ErrCorrupt
	}
	it, off, err := getItem(b, hdrLen)
	if err != nil {
		return Item{}, err
	}
	if off != len(b) {
		return Item{}, ErrCorrupt
	}
	return it, nil
}

// List: magic(4) | ver(1) | kind(1) | n(u32) | item*n
func EncodeList(items []Item) ([]byte, error) {
	total := hdrLen + 4
	for _, it := range items {
		total += 2 + len(it.Tag) + 4 + len(it.Body)
	}
	var buf bytes.Buffer
	buf.Grow(total)
	header(&buf, KindList)
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(items)))
	buf.Write(u4[:])
	for _, it := range items {
		if err := putItem(&buf, it); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func DecodeList(b []byte) ([]Item, error) {
	if k, err := Kind(b); err != nil || k != KindList {
		return nil, ErrCorrupt
	}
	off := hdrLen
	if off+4 > len(b) {
		return nil, ErrCorrupt
	}
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// do not preallocate from the untrusted count
	var items []Item
	for i := 0; i < n; i++ {
		it, next, err := getItem(b, off)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		off = next
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return items, nil
}

// IDSet: magic(4) | ver(1) | kind(1) | n(u32) | id(u64)*n
func EncodeIDSet(ids []int64) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + 4 + 8*len(ids))
	header(&buf, KindIDSet)
	var u4 [4]byte
	var u8 [8]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(ids)))
	buf.Write(u4[:])
	for _, id := range ids {
		binary.BigEndian.PutUint64(u8[:], uint64(id))
		buf.Write(u8[:])
	}
	return buf.Bytes()
}

func DecodeIDSet(b []byte) ([]int64, error) {
	if k, err := Kind(b); err != nil || k != KindIDSet {
		return nil, ErrCorrupt
	}
	off := hdrLen
	if off+4 > len(b) {
		return nil, ErrCorrupt
	}
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 || len(b)-off != 8*n {
		return nil, ErrCorrupt
	}
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, int64(binary.BigEndian.Uint64(b[off:off+8])))
		off += 8
	}
	return ids, nil
}

// Opaque: magic(4) | ver(1) | kind(1) | body
func EncodeOpaque(body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(body))
	header(&buf, KindOpaque)
	buf.Write(body)
	return buf.Bytes()
}

func DecodeOpaque(b []byte) ([]byte, error) {
	if k, err := Kind(b); err != nil || k != KindOpaque {
		return nil, ErrCorrupt
	}
	return b[hdrLen:], nil
}
