// Package scull provides an in-memory, sparse, byte-addressable storage
// device modeled on the classic scull character driver.
//
// A [Device] stores data in a singly-linked chain of nodes. Each node holds
// QSet slots and each slot holds one quantum buffer of Quantum bytes. Nodes,
// slot arrays and buffers are allocated the first time a write needs them and
// freed only by [Device.Trim]. Never-written regions are holes.
//
// # Basic Usage
//
//	dev, err := scull.New(scull.Options{}) // 4000-byte quanta, 1000 per node
//	if err != nil {
//	    return err
//	}
//	defer dev.Close(ctx)
//
//	// One call moves at most one quantum; loop at off+n for more.
//	n, err := dev.Write(ctx, data, off)
//	n, err = dev.Read(ctx, buf, off)
//
//	// Or use a handle with a cursor and io.Reader/io.Writer semantics.
//	f, err := dev.Open(ctx, os.O_RDWR)
//	_, err = io.Copy(f, src)
//
// # Addressing
//
// An offset splits into a node index (off / (Quantum*QSet)), a slot index and
// an offset inside the quantum. Device reads and writes are clamped so a
// single call never crosses a quantum boundary; reads are also clamped to
// the device size.
//
// # Concurrency
//
// Each device has one exclusive lock. Every operation holds it for its whole
// duration, so operations on one device are serialized and each call's byte
// range is written atomically. Waiting for the lock can be abandoned through
// the context, which yields [ErrInterrupted]. Separate devices share nothing
// but, optionally, their [Allocator].
//
// # Error Handling
//
// Allocation failures ([ErrNoMemory]) copy nothing and leave the size
// unchanged. Interrupted lock waits ([ErrInterrupted]) change nothing.
// [Errno] maps errors to the errno values a device layer would report.
package scull
