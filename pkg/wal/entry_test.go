package wal

import "testing"

func TestEncodeDecodePayload_Begin(t *testing.T) {
	rec := Record{Kind: KindBegin, TxnID: 7, StartSnapshot: 42}
	payload := encodePayload(rec)

	got, err := decodePayload(KindBegin, payload)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if got.TxnID != 7 || got.StartSnapshot != 42 {
		t.Errorf("decoded %+v, want TxnID=7 StartSnapshot=42", got)
	}
}

func TestEncodeDecodePayload_Commit(t *testing.T) {
	rec := Record{Kind: KindCommit, TxnID: 7, CommitSnapshot: 43}
	payload := encodePayload(rec)

	got, err := decodePayload(KindCommit, payload)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if got.TxnID != 7 || got.CommitSnapshot != 43 {
		t.Errorf("decoded %+v, want TxnID=7 CommitSnapshot=43", got)
	}
}

func TestEncodeDecodePayload_Abort(t *testing.T) {
	rec := Record{Kind: KindAbort, TxnID: 9}
	payload := encodePayload(rec)

	got, err := decodePayload(KindAbort, payload)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if got.TxnID != 9 {
		t.Errorf("decoded TxnID=%d, want 9", got.TxnID)
	}
}

func TestEncodeDecodePayload_UserData(t *testing.T) {
	rec := Record{Kind: KindUserData, TxnID: 3, Data: []byte("hello")}
	payload := encodePayload(rec)

	got, err := decodePayload(KindUserData, payload)
	if err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if got.TxnID != 3 || string(got.Data) != "hello" {
		t.Errorf("decoded %+v, want TxnID=3 Data=hello", got)
	}
}

func TestDecodePayload_WrongLength(t *testing.T) {
	if _, err := decodePayload(KindBegin, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for malformed BEGIN payload")
	}
	if _, err := decodePayload(KindCommit, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for malformed COMMIT payload")
	}
	if _, err := decodePayload(KindAbort, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for malformed ABORT payload")
	}
}

func TestEncodeDecodeHeader_RoundTrip(t *testing.T) {
	buf := make([]byte, headerSize)
	encodeHeader(buf, 123, 999, KindCommit)

	length, lsn, kind := decodeHeader(buf)
	if length != 123 || lsn != 999 || kind != KindCommit {
		t.Errorf("decodeHeader = (%d, %d, %s), want (123, 999, COMMIT)", length, lsn, kind)
	}
}

func TestKindString(t *testing.T) {
	cases := []struct {
		k    Kind
		want string
	}{
		{KindBegin, "BEGIN"},
		{KindUserData, "USER_DATA"},
		{KindCommit, "COMMIT"},
		{KindAbort, "ABORT"},
		{Kind(99), "UNKNOWN"},
	}
	for _, c := range cases {
		if got := c.k.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.k, got, c.want)
		}
	}
}

func TestChecksum_DetectsMutation(t *testing.T) {
	data := []byte("some record bytes")
	crc := checksum(data)
	if !validChecksum(data, crc) {
		t.Fatal("expected checksum to validate against itself")
	}

	mutated := append([]byte(nil), data...)
	mutated[0] ^= 0xFF
	if validChecksum(mutated, crc) {
		t.Error("expected checksum mismatch after mutation")
	}
}
