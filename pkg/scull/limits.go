package scull

// Hardcoded implementation limits.
//
// They keep offset arithmetic away from int64 overflow and stop a single
// write at an absurd offset from walking billions of nodes into existence.
// Geometry violations return ErrInvalidInput; offsets at or past
// maxAddressable, or in a node at or past maxNodes, return ErrTooLarge.
const (
	// Maximum bytes per quantum buffer.
	maxQuantum = 1 << 30 // 1 GiB

	// Maximum quantum slots per node.
	maxQSet = 1 << 24

	// Maximum number of nodes in one chain. A node costs nodeBytes, so the
	// longest chain one write can build stays in the tens of MiB.
	maxNodes = 1 << 20

	// Maximum addressable offset, independent of geometry.
	maxAddressable = 1 << 40 // 1 TiB

	// Maximum number of devices a Registry will build.
	maxDevices = 256
)
