package parcel

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/blockberries/parcelgen/internal/wire"
)

// Compression selects how StreamWriter compresses each frame.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as printed by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("parcel: unknown compression %q", name)
	}
}

var errIncompressible = errors.New("parcel: frame is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("parcel: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("parcel: zstd decoder initialization failed: " + err.Error())
	}
}

func compressFrame(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionLZ4:
		dst := getBuffer(lz4.CompressBlockBound(len(data)))
		dst = dst[:cap(dst)]
		written, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			putBuffer(dst)
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports 0 for incompressible input.
		if written == 0 || written >= len(data) {
			putBuffer(dst)
			return nil, errIncompressible
		}
		return dst[:written], nil
	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, getBuffer(len(data)))
		if len(compressed) >= len(data) {
			putBuffer(compressed)
			return nil, errIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("parcel: unsupported compression %s", c)
	}
}

func decompressFrame(c Compression, data []byte, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(data) != size {
			return nil, fmt.Errorf("uncompressed frame: size %d does not match expected %d", len(data), size)
		}
		return data, nil
	case CompressionLZ4:
		out := make([]byte, size)
		read, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return out, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parcel: unsupported compression %s", c)
	}
}

// StreamWriter writes a sequence of containers to an io.Writer, one frame
// per container. A frame is the compression byte, the uncompressed size,
// the payload size and the payload. Frames that would not shrink are
// written uncompressed.
//
// StreamWriter is not safe for concurrent use.
type StreamWriter struct {
	w           *bufio.Writer
	opts        Options
	compression Compression
	err         error
	scratch     [3 * wire.MaxVarintLen64]byte
}

// NewStreamWriter creates a StreamWriter with default options.
func NewStreamWriter(w io.Writer, compression Compression) *StreamWriter {
	return NewStreamWriterWithOptions(w, compression, DefaultOptions)
}

// NewStreamWriterWithOptions creates a StreamWriter with options.
func NewStreamWriterWithOptions(w io.Writer, compression Compression, opts Options) *StreamWriter {
	return &StreamWriter{
		w:           bufio.NewWriterSize(w, 4096),
		opts:        opts,
		compression: compression,
	}
}

// Err returns the first error that occurred while writing.
func (sw *StreamWriter) Err() error {
	return sw.err
}

func (sw *StreamWriter) setError(err error) {
	if sw.err == nil {
		sw.err = err
	}
}

// WriteContainer writes c as one frame.
func (sw *StreamWriter) WriteContainer(c Container, flags int) error {
	if sw.err != nil {
		return sw.err
	}
	p := Get()
	defer Put(p)
	p.opts = sw.opts
	c.WriteToParcel(p, flags)
	if err := p.Err(); err != nil {
		sw.setError(err)
		return err
	}
	return sw.WriteFrame(p.Bytes())
}

// WriteFrame writes data as one frame, compressing it when that helps.
func (sw *StreamWriter) WriteFrame(data []byte) error {
	if sw.err != nil {
		return sw.err
	}
	if limit := sw.opts.Limits.MaxParcelSize; limit > 0 && int64(len(data)) > limit {
		sw.setError(NewEncodeError("", "frame too large", ErrMaxSizeExceeded))
		return sw.err
	}

	compression := sw.compression
	payload := data
	if compression != CompressionNone {
		compressed, err := compressFrame(compression, data)
		switch {
		case errors.Is(err, errIncompressible):
			compression = CompressionNone
		case err != nil:
			sw.setError(NewEncodeError("", "compress frame", err))
			return sw.err
		default:
			payload = compressed
			defer putBuffer(compressed)
		}
	}

	header := append(sw.scratch[:0], byte(compression))
	header = wire.AppendUvarint(header, uint64(len(data)))
	header = wire.AppendUvarint(header, uint64(len(payload)))
	if _, err := sw.w.Write(header); err != nil {
		sw.setError(NewEncodeError("", "write failed", err))
		return sw.err
	}
	if _, err := sw.w.Write(payload); err != nil {
		sw.setError(NewEncodeError("", "write failed", err))
	}
	return sw.err
}

// Flush writes any buffered frames to the underlying writer.
func (sw *StreamWriter) Flush() error {
	if sw.err != nil {
		return sw.err
	}
	if err := sw.w.Flush(); err != nil {
		sw.setError(NewEncodeError("", "flush failed", err))
	}
	return sw.err
}

// StreamReader reads frames written by StreamWriter.
//
// StreamReader is not safe for concurrent use.
type StreamReader struct {
	r    *bufio.Reader
	opts Options
	err  error
}

// NewStreamReader creates a StreamReader with default options.
func NewStreamReader(r io.Reader) *StreamReader {
	return NewStreamReaderWithOptions(r, DefaultOptions)
}

// NewStreamReaderWithOptions creates a StreamReader with options.
func NewStreamReaderWithOptions(r io.Reader, opts Options) *StreamReader {
	return &StreamReader{
		r:    bufio.NewReaderSize(r, 4096),
		opts: opts,
	}
}

// Err returns the first error that occurred while reading. A clean end of
// stream is not an error.
func (sr *StreamReader) Err() error {
	return sr.err
}

func (sr *StreamReader) setError(err error) {
	if sr.err == nil {
		sr.err = err
	}
}

func (sr *StreamReader) readUvarint() (uint64, error) {
	var v uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := sr.r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, ErrInvalidVarint
}

func (sr *StreamReader) frameSize() (int, error) {
	n, err := sr.readUvarint()
	if err != nil {
		if err == io.EOF {
			err = ErrUnexpectedEOF
		}
		return 0, err
	}
	if limit := sr.opts.Limits.MaxParcelSize; limit > 0 && n > uint64(limit) {
		return 0, ErrMaxSizeExceeded
	}
	return int(n), nil
}

// ReadFrame reads the next frame and returns its uncompressed bytes.
// It returns io.EOF at a clean end of stream.
func (sr *StreamReader) ReadFrame() ([]byte, error) {
	if sr.err != nil {
		return nil, sr.err
	}
	tag, err := sr.r.ReadByte()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		sr.setError(NewDecodeErrorAt(0, "read frame", err))
		return nil, sr.err
	}
	size, err := sr.frameSize()
	if err != nil {
		sr.setError(NewDecodeErrorAt(0, "frame size", err))
		return nil, sr.err
	}
	payloadSize, err := sr.frameSize()
	if err != nil {
		sr.setError(NewDecodeErrorAt(0, "frame payload size", err))
		return nil, sr.err
	}
	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(sr.r, payload); err != nil {
		sr.setError(NewDecodeErrorAt(0, "frame payload", ErrUnexpectedEOF))
		return nil, sr.err
	}
	data, err := decompressFrame(Compression(tag), payload, size)
	if err != nil {
		sr.setError(NewDecodeErrorAt(0, "decompress frame", err))
		return nil, sr.err
	}
	return data, nil
}

// ReadContainer reads the next frame into c. It returns io.EOF at a clean
// end of stream.
func (sr *StreamReader) ReadContainer(c Container) error {
	data, err := sr.ReadFrame()
	if err != nil {
		return err
	}
	if err := UnmarshalWithOptions(data, c, sr.opts); err != nil {
		sr.setError(err)
		return err
	}
	return nil
}

// Next reads the next frame into c and reports whether it succeeded.
// At the end of the stream, or on error, it returns false; check Err.
func (sr *StreamReader) Next(c Container) bool {
	return sr.ReadContainer(c) == nil
}
