package testutil

import "fmt"

// Operation is a single device call applied to both the model and the real
// device.
type Operation interface {
	Name() string
	String() string
}

// OpWrite represents Device.Write(ctx, Data, Offset).
type OpWrite struct {
	Offset int64
	Data   []byte
}

// Name returns the operation name.
func (OpWrite) Name() string { return "Write" }
func (op OpWrite) String() string {
	return fmt.Sprintf("Write(off=%d, len=%d)", op.Offset, len(op.Data))
}

// OpRead represents Device.Read(ctx, make([]byte, Len), Offset).
type OpRead struct {
	Offset int64
	Len    int
}

// Name returns the operation name.
func (OpRead) Name() string { return "Read" }
func (op OpRead) String() string {
	return fmt.Sprintf("Read(off=%d, len=%d)", op.Offset, op.Len)
}

// OpTrim represents Device.Trim(ctx).
type OpTrim struct{}

// Name returns the operation name.
func (OpTrim) Name() string   { return "Trim" }
func (OpTrim) String() string { return "Trim()" }

// OpStats represents Device.Stats(ctx).
type OpStats struct{}

// Name returns the operation name.
func (OpStats) Name() string   { return "Stats" }
func (OpStats) String() string { return "Stats()" }
