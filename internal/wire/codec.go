package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"

	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/executor"
)

// Version is the current frame version. A peer speaking a different
// version gets an explicit error instead of a silent misdecode.
const Version byte = 1

// maxFrameSize bounds a single frame to keep a misbehaving peer from
// forcing a huge allocation.
const maxFrameSize = 64 << 20

// SubRequest carries one plan fragment to the node owning a partition.
type SubRequest struct {
	Fragment executor.Fragment
}

// SubResponse carries the partition's partial result back, or the
// error that produced instead of one.
type SubResponse struct {
	Partial *executor.Partial
	Err     string
}

func init() {
	// Interface-valued fields (operand literals, row values, group
	// keys) need their concrete types registered up front.
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
	gob.Register(int(0))
	gob.Register(data.Row{})
	gob.Register([]any{})
}

// WriteFrame encodes v as gob, compresses it and writes a single
// length-prefixed frame: u32 payload length, version byte, payload.
func WriteFrame(w io.Writer, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	payload := snappy.Encode(nil, buf.Bytes())

	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)))
	header[4] = Version
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one frame from r and decodes it into v.
func ReadFrame(r io.Reader, v any) error {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:4])
	if size > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", size)
	}
	if header[4] != Version {
		return fmt.Errorf("unsupported frame version %d, want %d", header[4], Version)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return err
	}
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return fmt.Errorf("decompressing frame: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}
	return nil
}
