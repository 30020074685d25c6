package scull_test

import (
	"context"
	"errors"
	"testing"

	"github.com/calvinalkan/scull/pkg/scull"
	"github.com/calvinalkan/scull/pkg/scull/model"
)

func Test_Chaos_Injects_ErrNoMemory_When_Rate_Is_One(t *testing.T) {
	t.Parallel()

	heap := scull.NewHeap(0)
	chaos := scull.NewChaos(heap, 1, &scull.ChaosConfig{QuantumFailRate: 1})
	dev := newDevice(t, scull.Options{Quantum: 8, QSet: 2, Allocator: chaos})
	ctx := context.Background()

	n, err := dev.Write(ctx, []byte("abc"), 0)
	if !errors.Is(err, scull.ErrNoMemory) {
		t.Fatalf("Write err=%v, want ErrNoMemory", err)
	}

	if !scull.IsChaosErr(err) {
		t.Fatalf("Write err=%v, want an injected error", err)
	}

	if n != 0 {
		t.Fatalf("n=%d, want 0", n)
	}

	stats := mustStats(t, dev)
	if stats.Size != 0 || stats.Nodes != 1 || stats.SlotArrays != 1 || stats.Buffers != 0 {
		t.Fatalf("stats=%+v, want size 0 with node and slot array retained", stats)
	}

	if got := chaos.Stats(); got != (scull.ChaosStats{QuantumFails: 1}) {
		t.Fatalf("chaos stats=%+v, want one quantum failure", got)
	}

	chaos.SetMode(scull.ChaosModeNoOp)

	_, err = dev.Write(ctx, []byte("abc"), 0)
	if err != nil {
		t.Fatalf("Write in no-op mode: %v", err)
	}

	_ = dev.Trim(ctx)

	if heap.Used() != 0 {
		t.Fatalf("heap used=%d after trim, want 0", heap.Used())
	}
}

func Test_IsChaosErr_Returns_False_When_Error_Is_Real(t *testing.T) {
	t.Parallel()

	if scull.IsChaosErr(nil) {
		t.Fatal("IsChaosErr(nil) must be false")
	}

	err := scull.NewHeap(1).Reserve(scull.KindNode, 2)
	if scull.IsChaosErr(err) {
		t.Fatalf("IsChaosErr(%v) must be false for a real limit failure", err)
	}
}

func Test_Device_Matches_Model_When_Allocations_Fail_Randomly(t *testing.T) {
	t.Parallel()

	for seed := range int64(8) {
		g := scull.Geometry{Quantum: 8, QSet: 3}
		chaos := scull.NewChaos(scull.NewHeap(0), seed, &scull.ChaosConfig{
			NodeFailRate:    0.1,
			SlotsFailRate:   0.1,
			QuantumFailRate: 0.2,
		})

		dev := newDevice(t, scull.Options{Quantum: g.Quantum, QSet: g.QSet, Allocator: chaos})
		m := model.New(g, 0)
		ctx := context.Background()

		for i := range 300 {
			off := int64((i*37 + int(seed)*11) % 200)
			data := []byte{byte(i), byte(i >> 8), byte(seed)}

			n, err := dev.Write(ctx, data, off)

			switch {
			case err == nil:
				if want := m.Write(data, off); n != want {
					t.Fatalf("seed %d op %d: n=%d, model wrote %d", seed, i, n, want)
				}
			case errors.Is(err, scull.ErrNoMemory):
				// Failed writes leave the model untouched.
			default:
				t.Fatalf("seed %d op %d: Write: %v", seed, i, err)
			}

			if size := mustStats(t, dev).Size; size != m.Size {
				t.Fatalf("seed %d op %d: size=%d, model %d", seed, i, size, m.Size)
			}
		}

		for off := int64(0); off < m.Size; off++ {
			got := mustRead(t, dev, 8, off)
			want := m.Read(8, off)

			if string(got) != string(want) {
				t.Fatalf("seed %d: read at %d = %v, model %v", seed, off, got, want)
			}
		}

		if chaos.Stats() == (scull.ChaosStats{}) {
			t.Fatalf("seed %d: no faults injected", seed)
		}
	}
}
