package testutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/scull/pkg/scull"
	"github.com/calvinalkan/scull/pkg/scull/model"
)

// Harness applies operations to a model and a real device side by side and
// fails the test on the first divergence.
type Harness struct {
	Model *model.Device
	Real  *scull.Device

	// History records every applied operation for failure messages.
	History []Operation
}

// NewHarness creates a model and a real device with geometry g and an
// unlimited allocator.
func NewHarness(tb testing.TB, g scull.Geometry) *Harness {
	tb.Helper()

	dev, err := scull.New(scull.Options{Quantum: g.Quantum, QSet: g.QSet})
	require.NoError(tb, err, "scull.New")

	return &Harness{
		Model: model.New(g, 0),
		Real:  dev,
	}
}

// Apply runs op against both sides and compares the observable results.
func (h *Harness) Apply(ctx context.Context, tb testing.TB, op Operation) {
	tb.Helper()

	h.History = append(h.History, op)

	switch op := op.(type) {
	case OpWrite:
		want := h.Model.Write(op.Data, op.Offset)

		got, err := h.Real.Write(ctx, op.Data, op.Offset)
		require.NoError(tb, err, "%s\nhistory: %v", op, h.History)
		require.Equal(tb, want, got, "%s: bytes written\nhistory: %v", op, h.History)

	case OpRead:
		want := h.Model.Read(op.Len, op.Offset)

		buf := make([]byte, op.Len)

		n, err := h.Real.Read(ctx, buf, op.Offset)
		require.NoError(tb, err, "%s\nhistory: %v", op, h.History)

		if diff := cmp.Diff(want, buf[:n]); diff != "" {
			tb.Fatalf("%s: read mismatch (-model +real):\n%s\nhistory: %v", op, diff, h.History)
		}

	case OpTrim:
		h.Model.Trim()

		err := h.Real.Trim(ctx)
		require.NoError(tb, err, "%s", op)

	case OpStats:
		h.CompareStats(ctx, tb)

	default:
		tb.Fatalf("unknown operation %T", op)
	}
}

// CompareStats checks size, geometry and allocation counts against the model.
func (h *Harness) CompareStats(ctx context.Context, tb testing.TB) {
	tb.Helper()

	stats, err := h.Real.Stats(ctx)
	require.NoError(tb, err, "Stats")

	type observed struct {
		Size     int64
		Geometry scull.Geometry
		Buffers  int
		Nodes    int
	}

	want := observed{
		Size:     h.Model.Size,
		Geometry: h.Model.Geometry,
		Buffers:  h.Model.Buffers(),
		Nodes:    h.Model.Nodes(),
	}

	got := observed{
		Size:     stats.Size,
		Geometry: stats.Geometry,
		Buffers:  stats.Buffers,
		Nodes:    stats.Nodes,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		tb.Fatalf("stats mismatch (-model +real):\n%s\nhistory: %v", diff, h.History)
	}
}
