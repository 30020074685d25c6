// Package model provides a deliberately simple, in-memory state model of a
// scull device's publicly observable behavior.
//
// The model is intentionally easy to audit: it keeps quanta in a map keyed by
// their global index instead of a node chain, and it never fails to
// allocate. Tests run the same operations against the model and a real
// device and compare the results.
package model

import "github.com/calvinalkan/scull/pkg/scull"

// Device is the modeled state of one device.
type Device struct {
	Geometry scull.Geometry
	Defaults scull.Geometry
	Size     int64

	// Quanta maps a global quantum index (offset / Quantum) to its buffer.
	// Absent keys are holes.
	Quanta map[int64][]byte
}

// New returns an empty modeled device with the given default geometry and
// initial size.
func New(g scull.Geometry, size int64) *Device {
	return &Device{
		Geometry: g,
		Defaults: g,
		Size:     size,
		Quanta:   map[int64][]byte{},
	}
}

// Write copies p at off up to the next quantum boundary and returns the
// number of bytes written.
func (m *Device) Write(p []byte, off int64) int {
	if len(p) == 0 {
		return 0
	}

	quantum := int64(m.Geometry.Quantum)
	idx := off / quantum
	inQuantum := off % quantum

	n := min(int64(len(p)), quantum-inQuantum)

	buf, ok := m.Quanta[idx]
	if !ok {
		buf = make([]byte, quantum)
		m.Quanta[idx] = buf
	}

	copy(buf[inQuantum:], p[:n])

	if off+n > m.Size {
		m.Size = off + n
	}

	return int(n)
}

// Read returns what a device read of maxLen bytes at off yields: at most
// one quantum, nothing past Size, nothing for a hole. The result is a copy.
func (m *Device) Read(maxLen int, off int64) []byte {
	if off >= m.Size || maxLen <= 0 {
		return []byte{}
	}

	quantum := int64(m.Geometry.Quantum)
	idx := off / quantum
	inQuantum := off % quantum

	n := min(int64(maxLen), m.Size-off, quantum-inQuantum)

	buf, ok := m.Quanta[idx]
	if !ok {
		return []byte{}
	}

	return append([]byte{}, buf[inQuantum:inQuantum+n]...)
}

// Trim drops all data and restores the default geometry.
func (m *Device) Trim() {
	m.Geometry = m.Defaults
	m.Size = 0
	m.Quanta = map[int64][]byte{}
}

// Buffers returns the number of allocated quanta.
func (m *Device) Buffers() int {
	return len(m.Quanta)
}

// Nodes returns how long the node chain of a real device must be: one past
// the highest node that holds a quantum, or 0 when nothing was written.
func (m *Device) Nodes() int {
	if len(m.Quanta) == 0 {
		return 0
	}

	var highest int64

	for idx := range m.Quanta {
		highest = max(highest, idx)
	}

	return int(highest/int64(m.Geometry.QSet)) + 1
}

// Clone makes a deep copy so tests can fork the same state.
func (m *Device) Clone() *Device {
	quanta := make(map[int64][]byte, len(m.Quanta))

	for idx, buf := range m.Quanta {
		quanta[idx] = append([]byte(nil), buf...)
	}

	return &Device{
		Geometry: m.Geometry,
		Defaults: m.Defaults,
		Size:     m.Size,
		Quanta:   quanta,
	}
}
