package testutil

import "github.com/calvinalkan/scull/pkg/scull"

// Decoder turns fuzz bytes into a deterministic sequence of operations.
//
// Offsets are biased toward the interesting spots of the geometry: quantum
// and node boundaries, the current end of the device and small offsets.
type Decoder struct {
	stream *ByteStream
	geom   scull.Geometry

	// end tracks the furthest offset written so reads and writes cluster
	// around live data.
	end int64
}

// NewDecoder creates a decoder for a device with geometry g.
func NewDecoder(fuzzBytes []byte, g scull.Geometry) *Decoder {
	return &Decoder{stream: NewByteStream(fuzzBytes), geom: g}
}

// HasMore reports whether more fuzz bytes remain.
func (d *Decoder) HasMore() bool {
	return d.stream.HasMore()
}

// Next returns the next operation.
func (d *Decoder) Next() Operation {
	switch choice := d.stream.NextInt(100); {
	case choice < 45:
		off := d.nextOffset()
		data := d.stream.NextBytes(d.nextLen())

		if end := off + int64(len(data)); end > d.end {
			d.end = end
		}

		return OpWrite{Offset: off, Data: data}
	case choice < 90:
		return OpRead{Offset: d.nextOffset(), Len: d.nextLen()}
	case choice < 95:
		d.end = 0

		return OpTrim{}
	default:
		return OpStats{}
	}
}

func (d *Decoder) nextOffset() int64 {
	quantum := int64(d.geom.Quantum)
	item := quantum * int64(d.geom.QSet)

	switch d.stream.NextInt(6) {
	case 0:
		return int64(d.stream.NextInt(int(quantum) * 2))
	case 1:
		// Just before a quantum boundary.
		k := int64(d.stream.NextInt(8)) + 1

		return max(0, k*quantum-int64(d.stream.NextInt(3))-1)
	case 2:
		// At a node boundary.
		return int64(d.stream.NextInt(4)) * item
	case 3:
		// Around the current end.
		return max(0, d.end+int64(d.stream.NextInt(9))-4)
	default:
		return int64(d.stream.NextUint16()) % (item*4 + 1)
	}
}

func (d *Decoder) nextLen() int {
	switch d.stream.NextInt(4) {
	case 0:
		return 0
	case 1:
		return d.stream.NextInt(d.geom.Quantum*3) + 1
	default:
		return d.stream.NextInt(16) + 1
	}
}
