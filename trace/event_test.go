package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEvent_EncodeDecode(t *testing.T) {
	ts := time.Unix(1700000000, 12345)
	tests := []Event{
		{Kind: KindAlloc, PID: 1, Words: 3},
		{Kind: KindMajorGC, PID: 1 << 40, Words: 1 << 30, Timestamp: ts, CallSite: "heap.go:42"},
		{Kind: KindFree, PID: 7, Words: -1},
	}
	for _, e := range tests {
		t.Run(e.Kind.String(), func(t *testing.T) {
			got, err := Decode(e.Encode(nil))
			require.NoError(t, err)
			assert.Equal(t, e.Kind, got.Kind)
			assert.Equal(t, e.PID, got.PID)
			assert.Equal(t, e.Words, got.Words)
			assert.Equal(t, e.CallSite, got.CallSite)
			assert.True(t, e.Timestamp.Equal(got.Timestamp))
		})
	}
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	b := Event{Kind: KindGrow, PID: 2, Words: 512}.Encode(nil)
	b = protowire.AppendTag(b, 99, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, KindGrow, got.Kind)
	assert.Equal(t, int64(512), got.Words)
}

func TestDecode_Malformed(t *testing.T) {
	b := Event{Kind: KindAlloc, PID: 2, CallSite: "x.go:1"}.Encode(nil)
	_, err := Decode(b[:len(b)-2])
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "minor_gc", KindMinorGC.String())
	assert.Equal(t, "unknown(99)", Kind(99).String())
}

func TestCallSite(t *testing.T) {
	assert.Contains(t, CallSite(0), "event_test.go:")
}
