package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	b, err := EncodeRecord(Item{Tag: "user", Body: []byte(`{"id":1}`)})
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	if k, err := Kind(b); err != nil || k != KindRecord {
		t.Fatalf("Kind = %d, %v", k, err)
	}
	it, err := DecodeRecord(b)
	if err != nil || it.Tag != "user" || !bytes.Equal(it.Body, []byte(`{"id":1}`)) {
		t.Fatalf("DecodeRecord = %+v, %v", it, err)
	}
}

func TestListRoundTrip(t *testing.T) {
	items := []Item{
		{Tag: "user", Body: []byte("a")},
		{Tag: "user", Body: []byte("bb")},
	}
	b, err := EncodeList(items)
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}
	got, err := DecodeList(b)
	if err != nil || len(got) != 2 {
		t.Fatalf("DecodeList = %v, %v", got, err)
	}
	for i := range items {
		if got[i].Tag != items[i].Tag || !bytes.Equal(got[i].Body, items[i].Body) {
			t.Fatalf("item %d = %+v", i, got[i])
		}
	}

	// zero-item lists are legal
	b, err = EncodeList(nil)
	if err != nil {
		t.Fatalf("EncodeList(nil): %v", err)
	}
	if got, err := DecodeList(b); err != nil || len(got) != 0 {
		t.Fatalf("DecodeList(empty) = %v, %v", got, err)
	}
}

func TestIDSetRoundTrip(t *testing.T) {
	ids := []int64{1, 99, 1 << 40}
	got, err := DecodeIDSet(EncodeIDSet(ids))
	if err != nil || len(got) != 3 {
		t.Fatalf("DecodeIDSet = %v, %v", got, err)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("id %d = %d, want %d", i, got[i], ids[i])
		}
	}
}

func TestOpaqueRoundTrip(t *testing.T) {
	body, err := DecodeOpaque(EncodeOpaque([]byte("anything")))
	if err != nil || !bytes.Equal(body, []byte("anything")) {
		t.Fatalf("DecodeOpaque = %q, %v", body, err)
	}
}

// Framing is strict: trailing bytes are corruption.
func TestDecodeRejectsTrailing(t *testing.T) {
	rec, err := EncodeRecord(Item{Tag: "t", Body: []byte("x")})
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	if _, err := DecodeRecord(append(rec, 0xDE, 0xAD)); err == nil {
		t.Fatalf("DecodeRecord should reject trailing bytes")
	}

	list, err := EncodeList([]Item{{Tag: "t", Body: []byte("x")}})
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}
	if _, err := DecodeList(append(list, 0xBE, 0xEF)); err == nil {
		t.Fatalf("DecodeList should reject trailing bytes")
	}

	if _, err := DecodeIDSet(append(EncodeIDSet([]int64{1}), 0x00)); err == nil {
		t.Fatalf("DecodeIDSet should reject trailing bytes")
	}
}

func TestKindRejectsForeignBytes(t *testing.T) {
	for _, b := range [][]byte{nil, []byte("x"), []byte("not-wire-format")} {
		if _, err := Kind(b); err == nil {
			t.Fatalf("Kind(%q) should fail", b)
		}
	}
	// right magic, wrong version
	bad := []byte{'R', 'E', 'C', 'V', 99, KindRecord}
	if _, err := Kind(bad); err == nil {
		t.Fatalf("Kind should reject unknown version")
	}
}

func TestEncodeTagLengthValidation(t *testing.T) {
	if _, err := EncodeRecord(Item{Tag: "", Body: []byte("x")}); err == nil {
		t.Fatalf("EncodeRecord should error on empty tag")
	}
	long := make([]byte, 0x10000)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := EncodeList([]Item{{Tag: string(long), Body: nil}}); err == nil {
		t.Fatalf("EncodeList should error on tag length > 0xFFFF")
	}
}

// A bogus count must not preallocate huge capacity and must error cleanly.
func TestDecodeListFakeCount(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'R', 'E', 'C', 'V'})
	buf.WriteByte(1)
	buf.WriteByte(KindList)
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], ^uint32(0))
	buf.Write(u4[:])

	if _, err := DecodeList(buf.Bytes()); err == nil {
		t.Fatalf("DecodeList should fail on wrong count with insufficient bytes")
	}
}
