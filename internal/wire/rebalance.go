package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// rebalanceVersion is the codec version of the rebalance argument.
// Bump it when the field set changes; decoders reject versions they
// don't know.
const rebalanceVersion uint16 = 1

// RebalanceRequest asks the cluster to rebalance the named caches.
// A nil set means all caches.
type RebalanceRequest struct {
	Caches []string
}

// Encode serializes the request: u16 version, u16 cache count, then
// each name as a u32 length followed by its bytes.
func (r *RebalanceRequest) Encode() ([]byte, error) {
	if len(r.Caches) > 0xFFFF {
		return nil, fmt.Errorf("too many caches: %d", len(r.Caches))
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, rebalanceVersion)
	binary.Write(&buf, binary.BigEndian, uint16(len(r.Caches)))
	for _, name := range r.Caches {
		binary.Write(&buf, binary.BigEndian, uint32(len(name)))
		buf.WriteString(name)
	}
	return buf.Bytes(), nil
}

// DecodeRebalanceRequest parses an encoded request, rejecting unknown
// versions and truncated input.
func DecodeRebalanceRequest(b []byte) (*RebalanceRequest, error) {
	buf := bytes.NewReader(b)

	var version uint16
	if err := binary.Read(buf, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("reading rebalance version: %w", err)
	}
	if version != rebalanceVersion {
		return nil, fmt.Errorf("unsupported rebalance version %d, want %d", version, rebalanceVersion)
	}

	var count uint16
	if err := binary.Read(buf, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading cache count: %w", err)
	}

	req := &RebalanceRequest{}
	for i := 0; i < int(count); i++ {
		var n uint32
		if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
			return nil, fmt.Errorf("reading cache name length: %w", err)
		}
		if int(n) > buf.Len() {
			return nil, fmt.Errorf("cache name length %d exceeds remaining input", n)
		}
		name := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(buf, name); err != nil {
				return nil, fmt.Errorf("reading cache name: %w", err)
			}
		}
		req.Caches = append(req.Caches, string(name))
	}
	if buf.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after rebalance request", buf.Len())
	}
	return req, nil
}
