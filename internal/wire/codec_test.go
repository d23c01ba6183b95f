package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/plan"
)

func TestFrameRoundTrip(t *testing.T) {
	req := &SubRequest{
		Fragment: executor.Fragment{
			QueryID:   "q-1",
			Partition: 3,
			Mode:      executor.ModeRaw,
			Scan: plan.TableScan{
				Type:  "Person",
				Cache: "partitioned",
				Access: plan.AccessPath{
					Kind:   plan.EqualityIndexScan,
					Column: "orgId",
					Value:  int64(7),
				},
				Residual: []plan.Condition{{
					Left:  plan.Operand{Kind: plan.ColumnOperand, Table: "Person", Column: "salary"},
					Op:    ">",
					Right: plan.Operand{Kind: plan.LiteralOperand, Value: float64(100)},
				}},
			},
			OrderBy: []plan.SortKey{{Table: "Person", Column: "lastName"}},
		},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var got SubRequest
	if err := ReadFrame(&buf, &got); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if got.Fragment.QueryID != "q-1" || got.Fragment.Partition != 3 {
		t.Errorf("fragment header lost: %+v", got.Fragment)
	}
	if got.Fragment.Scan.Access.Value != int64(7) {
		t.Errorf("access value lost its type: %v (%T)",
			got.Fragment.Scan.Access.Value, got.Fragment.Scan.Access.Value)
	}
	if got.Fragment.Scan.Residual[0].Right.Value != float64(100) {
		t.Errorf("residual literal lost its type: %v (%T)",
			got.Fragment.Scan.Residual[0].Right.Value, got.Fragment.Scan.Residual[0].Right.Value)
	}
}

func TestResponseRoundTripPreservesRowTypes(t *testing.T) {
	resp := &SubResponse{
		Partial: &executor.Partial{
			Partition: 1,
			Sorted:    true,
			Raw: []data.Row{{
				"Person.id":     int64(5),
				"Person.salary": float64(500),
				"Person.name":   "x",
				"Person.flag":   true,
			}},
		},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, resp); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var got SubResponse
	if err := ReadFrame(&buf, &got); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	row := got.Partial.Raw[0]
	if row["Person.id"] != int64(5) {
		t.Errorf("int64 mangled: %v (%T)", row["Person.id"], row["Person.id"])
	}
	if row["Person.salary"] != float64(500) {
		t.Errorf("float64 mangled: %v (%T)", row["Person.salary"], row["Person.salary"])
	}
	if row["Person.flag"] != true {
		t.Errorf("bool mangled: %v", row["Person.flag"])
	}
	if !got.Partial.Sorted {
		t.Error("sorted flag lost")
	}
}

func TestReadFrameRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &SubResponse{}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	raw := buf.Bytes()
	raw[4] = Version + 1

	var got SubResponse
	err := ReadFrame(bytes.NewReader(raw), &got)
	if err == nil {
		t.Fatal("expected version error")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error should mention the version: %v", err)
	}
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF, Version}
	var got SubResponse
	if err := ReadFrame(bytes.NewReader(header), &got); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestRebalanceRoundTrip(t *testing.T) {
	req := &RebalanceRequest{Caches: []string{"partitioned", "replicated", ""}}

	b, err := req.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := DecodeRebalanceRequest(b)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got.Caches) != 3 {
		t.Fatalf("expected 3 caches, got %d", len(got.Caches))
	}
	for i, name := range req.Caches {
		if got.Caches[i] != name {
			t.Errorf("caches[%d] = %q, want %q", i, got.Caches[i], name)
		}
	}

	// a lone empty name sits at the very end of the buffer
	one := &RebalanceRequest{Caches: []string{""}}
	b, _ = one.Encode()
	got, err = DecodeRebalanceRequest(b)
	if err != nil {
		t.Fatalf("decode of a lone empty name failed: %v", err)
	}
	if len(got.Caches) != 1 || got.Caches[0] != "" {
		t.Errorf("expected one empty name, got %v", got.Caches)
	}

	empty := &RebalanceRequest{}
	b, _ = empty.Encode()
	got, err = DecodeRebalanceRequest(b)
	if err != nil {
		t.Fatalf("decode of empty set failed: %v", err)
	}
	if len(got.Caches) != 0 {
		t.Errorf("expected no caches, got %v", got.Caches)
	}
}

func TestRebalanceDecodeErrors(t *testing.T) {
	req := &RebalanceRequest{Caches: []string{"a"}}
	b, _ := req.Encode()

	// unknown version
	bad := append([]byte{}, b...)
	bad[1] = 9
	if _, err := DecodeRebalanceRequest(bad); err == nil {
		t.Error("expected error for unknown version")
	}

	// truncated name
	if _, err := DecodeRebalanceRequest(b[:len(b)-1]); err == nil {
		t.Error("expected error for truncated input")
	}

	// trailing bytes
	if _, err := DecodeRebalanceRequest(append(append([]byte{}, b...), 0x00)); err == nil {
		t.Error("expected error for trailing bytes")
	}

	// name length past the end
	lied := append([]byte{}, b...)
	lied[7] = 200 // u32 length field of the first name
	if _, err := DecodeRebalanceRequest(lied); err == nil {
		t.Error("expected error for oversized name length")
	}
}
