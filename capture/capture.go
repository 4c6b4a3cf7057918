// Package capture defines the external contracts the hierarchy builder
// consumes: a decoded submission stream (Capture, SubmitInfo,
// IndirectBufferInfo, PresentInfo) and a GPU memory view (MemoryView).
// Both are interfaces because the real implementations, a capture file
// reader and a replayed-device memory snapshot, live outside this tree.
// BufferMemory and StaticCapture below are reference implementations used
// by tests and by the standalone CreateTreesFromBuffer entry point.
package capture

// EngineType names the hardware engine a submit targets. Only these three
// are decodable; anything else causes the builder to skip the submit
// without attempting to walk its indirect buffers.
type EngineType uint8

const (
	EngineUniversal EngineType = iota
	EngineCompute
	EngineDma
	EngineUnknown
)

func (e EngineType) String() string {
	switch e {
	case EngineUniversal:
		return "Universal"
	case EngineCompute:
		return "Compute"
	case EngineDma:
		return "Dma"
	default:
		return "Unknown"
	}
}

// Decodable reports whether the hierarchy builder knows how to walk a
// submit targeting this engine.
func (e EngineType) Decodable() bool {
	return e == EngineUniversal || e == EngineCompute || e == EngineDma
}

type QueueType uint8

const (
	QueueUnknown QueueType = iota
	QueueGraphics
	QueueCompute
	QueueTransfer
)

func (q QueueType) String() string {
	switch q {
	case QueueGraphics:
		return "Graphics"
	case QueueCompute:
		return "Compute"
	case QueueTransfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}

// IndirectBufferInfo describes one indirect buffer a submit points at.
//
// Index is the buffer's logical slot within its submit. Capture producers
// don't always enumerate indirect buffers in slot order (a capture tool
// may record them in whatever order it observed the driver emit them),
// so Index is carried explicitly rather than inferred from list position.
type IndirectBufferInfo struct {
	Index      int
	VA         uint64
	SizeDwords uint32
	// Skip marks an indirect buffer whose backing memory was not
	// captured (e.g. it belongs to a different process). The builder
	// still creates a node for it but never attempts to read packets.
	Skip bool
}

// SubmitInfo describes one entry in a capture's submission list.
type SubmitInfo struct {
	EngineType      EngineType
	QueueType       QueueType
	EngineIndex     int
	IsDummy         bool
	IndirectBuffers []IndirectBufferInfo
}

// PresentInfo marks a swapchain present attached after a given submit.
type PresentInfo struct {
	SubmitIndex int
	Description string
}

// Capture is the decoded-submission-stream contract the hierarchy builder
// consumes. A real implementation wraps a parsed capture file; tests and
// the standalone entry point use StaticCapture.
type Capture interface {
	NumSubmits() int
	SubmitInfo(i int) SubmitInfo
	MemoryView() MemoryView
	VulkanMetadataVersion() uint32
	NumPresents() int
	PresentInfo(i int) PresentInfo
}

// StaticCapture is a Capture built from already-decoded slices, used by
// tests and by CreateTreesFromBuffer.
type StaticCapture struct {
	Submits  []SubmitInfo
	Memory   MemoryView
	Version  uint32
	Presents []PresentInfo
}

func (c *StaticCapture) NumSubmits() int              { return len(c.Submits) }
func (c *StaticCapture) SubmitInfo(i int) SubmitInfo   { return c.Submits[i] }
func (c *StaticCapture) MemoryView() MemoryView        { return c.Memory }
func (c *StaticCapture) VulkanMetadataVersion() uint32 { return c.Version }
func (c *StaticCapture) NumPresents() int              { return len(c.Presents) }
func (c *StaticCapture) PresentInfo(i int) PresentInfo { return c.Presents[i] }
