package trace

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSink_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			sink, err := NewStreamSink(&buf, func(o *StreamSinkOptions) {
				o.Compression = c
			})
			require.NoError(t, err)

			for i := range 100 {
				sink.Record(Event{Kind: KindAlloc, PID: 3, Words: int64(i), CallSite: "construct.go:40"})
			}
			require.NoError(t, sink.Close())
			assert.Equal(t, uint64(100), sink.Count())

			r, err := NewStreamReader(&buf, c)
			require.NoError(t, err)
			defer r.Close()

			for i := range 100 {
				e, err := r.Next()
				require.NoError(t, err)
				assert.Equal(t, int64(i), e.Words)
				assert.Equal(t, uint64(3), e.PID)
			}
			_, err = r.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestStreamSink_CompressionShrinksRepetitiveStreams(t *testing.T) {
	var raw, packed bytes.Buffer
	plain, err := NewStreamSink(&raw)
	require.NoError(t, err)
	zst, err := NewStreamSink(&packed, func(o *StreamSinkOptions) {
		o.Compression = CompressionZstd
		o.ZstdLevel = 3
	})
	require.NoError(t, err)

	for range 1000 {
		e := Event{Kind: KindMinorGC, PID: 1, Words: 64, CallSite: "alloc.go:12"}
		plain.Record(e)
		zst.Record(e)
	}
	require.NoError(t, plain.Close())
	require.NoError(t, zst.Close())
	assert.Less(t, packed.Len(), raw.Len()/4)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestStreamSink_KeepsFirstError(t *testing.T) {
	sink, err := NewStreamSink(failingWriter{})
	require.NoError(t, err)

	for range 10_000 {
		sink.Record(Event{Kind: KindAlloc, CallSite: "padding-to-fill-the-buffer.go:1"})
	}
	assert.EqualError(t, sink.Err(), "disk full")
	assert.EqualError(t, sink.Close(), "disk full")
	assert.Less(t, sink.Count(), uint64(10_000))
}

func TestStreamSink_UnknownCompression(t *testing.T) {
	_, err := NewStreamSink(io.Discard, func(o *StreamSinkOptions) { o.Compression = 9 })
	assert.ErrorIs(t, err, ErrUnknownCompression)
	_, err = NewStreamReader(bytes.NewReader(nil), 9)
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
