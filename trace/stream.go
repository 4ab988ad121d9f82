package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"google.golang.org/protobuf/encoding/protowire"
)

// Compression selects the stream compression of a StreamSink.
type Compression uint8

const (
	// CompressionNone writes raw records.
	CompressionNone Compression = iota
	// CompressionLZ4 writes an LZ4 frame (fast).
	CompressionLZ4
	// CompressionZstd writes a zstd stream (better ratio).
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ErrUnknownCompression is returned for an unsupported Compression value.
var ErrUnknownCompression = errors.New("trace: unknown compression")

// StreamSinkOptions configures a StreamSink.
type StreamSinkOptions struct {
	Compression Compression
	// ZstdLevel is the zstd encoder level (1-22). 0 means default.
	ZstdLevel int
}

// StreamSink writes length-delimited event records to an io.Writer.
//
// Recording never fails: the first write error is kept, reported by Err and
// Close, and later events are discarded.
type StreamSink struct {
	mu     sync.Mutex
	out    io.Writer
	buf    *bufio.Writer
	closer io.Closer // compressor, nil when uncompressed
	record []byte
	err    error
	count  uint64
}

// NewStreamSink creates a sink writing to w. Close must be called to flush.
func NewStreamSink(w io.Writer, optFns ...func(o *StreamSinkOptions)) (*StreamSink, error) {
	opts := StreamSinkOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &StreamSink{}
	switch opts.Compression {
	case CompressionNone:
		s.out = w
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		s.out, s.closer = zw, zw
	case CompressionZstd:
		level := zstd.SpeedDefault
		if opts.ZstdLevel > 0 {
			level = zstd.EncoderLevelFromZstd(opts.ZstdLevel)
		}
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, fmt.Errorf("trace: zstd writer: %w", err)
		}
		s.out, s.closer = zw, zw
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, opts.Compression)
	}
	s.buf = bufio.NewWriter(s.out)
	return s, nil
}

// Record implements Recorder.
func (s *StreamSink) Record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	s.record = e.Encode(s.record[:0])
	var prefix [binaryMaxVarintLen]byte
	head := protowire.AppendVarint(prefix[:0], uint64(len(s.record)))
	if _, err := s.buf.Write(head); err != nil {
		s.err = err
		return
	}
	if _, err := s.buf.Write(s.record); err != nil {
		s.err = err
		return
	}
	s.count++
}

const binaryMaxVarintLen = 10

// Count returns the number of records written.
func (s *StreamSink) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Err returns the first write error.
func (s *StreamSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Flush writes buffered records through to the compressor.
func (s *StreamSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if err := s.buf.Flush(); err != nil {
		s.err = err
	}
	return s.err
}

// Close flushes buffered records and finishes the compressed stream. It does
// not close the underlying writer.
func (s *StreamSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.err == nil {
			s.err = err
		}
		s.closer = nil
	}
	return s.err
}

// StreamReader reads records written by a StreamSink.
type StreamReader struct {
	r      *bufio.Reader
	closer func()
	record []byte
}

// NewStreamReader reads a stream with the given compression.
func NewStreamReader(r io.Reader, c Compression) (*StreamReader, error) {
	sr := &StreamReader{}
	switch c {
	case CompressionNone:
		sr.r = bufio.NewReader(r)
	case CompressionLZ4:
		sr.r = bufio.NewReader(lz4.NewReader(r))
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("trace: zstd reader: %w", err)
		}
		sr.r = bufio.NewReader(zr)
		sr.closer = zr.Close
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	return sr, nil
}

// Next returns the next event, or io.EOF at the end of the stream.
func (sr *StreamReader) Next() (Event, error) {
	n, err := readUvarint(sr.r)
	if err != nil {
		return Event{}, err
	}
	if cap(sr.record) < int(n) {
		sr.record = make([]byte, n)
	}
	sr.record = sr.record[:n]
	if _, err := io.ReadFull(sr.r, sr.record); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return Decode(sr.record)
}

// Close releases decoder resources.
func (sr *StreamReader) Close() {
	if sr.closer != nil {
		sr.closer()
		sr.closer = nil
	}
}

// readUvarint reads a protobuf varint; io.EOF is returned only before the
// first byte.
func readUvarint(r io.ByteReader) (uint64, error) {
	var v uint64
	for i := 0; i < binaryMaxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("%w: truncated length", ErrMalformedRecord)
			}
			return 0, err
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: length overflows", ErrMalformedRecord)
}
