// Package testutil provides test-only infrastructure for scull behavior and
// fuzz testing.
//
// It includes a deterministic byte stream, an operation decoder and a
// model/real harness that applies the same operations to a
// [model.Device] and a real [scull.Device].
package testutil
