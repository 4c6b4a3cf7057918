package pm4

import (
	"encoding/binary"

	"ktkr.us/pkg/cmdhierarchy/capture"
)

// packType7 encodes a type-7 header followed by payload, little-endian.
func packType7(opcode uint8, payload []uint32) []uint32 {
	header := uint32(3)<<classShift | uint32(opcode)<<16 | uint32(len(payload))
	return append([]uint32{header}, payload...)
}

// packType4 encodes a type-4 register-write burst.
func packType4(regOffset uint32, values []uint32) []uint32 {
	header := uint32(1)<<classShift | uint32(len(values))<<16 | regOffset
	return append([]uint32{header}, values...)
}

// packIBTarget encodes an indirect-buffer(-chain) packet's 3-dword payload.
func packIBTarget(opcode uint8, va uint64, sizeDwords uint32) []uint32 {
	return packType7(opcode, []uint32{uint32(va), uint32(va>>32) & 0xFFFF, sizeDwords})
}

func dwordsToBytes(dwords []uint32) []byte {
	out := make([]byte, len(dwords)*4)
	for i, d := range dwords {
		binary.LittleEndian.PutUint32(out[i*4:], d)
	}
	return out
}

// recordingReceiver records the sequence of callbacks Run makes, for
// assertions about ordering and nesting depth.
type recordingReceiver struct {
	events []string
	// onPacket lets a test veto specific packets or just observe them.
	onPacket func(ibIndex int, header uint32) bool
}

func (r *recordingReceiver) OnSubmitStart(i int, info capture.SubmitInfo) {
	r.events = append(r.events, "submitStart")
}
func (r *recordingReceiver) OnSubmitEnd(i int, info capture.SubmitInfo) {
	r.events = append(r.events, "submitEnd")
}
func (r *recordingReceiver) OnIbStart(i int, info capture.IndirectBufferInfo, kind IbKind) bool {
	r.events = append(r.events, "ibStart:"+kind.String())
	return true
}
func (r *recordingReceiver) OnIbEnd(i int, info capture.IndirectBufferInfo) bool {
	r.events = append(r.events, "ibEnd")
	return true
}
func (r *recordingReceiver) OnPacket(mem capture.MemoryView, submitIndex, ibIndex int, va uint64, pm4Type PacketType, header uint32) bool {
	r.events = append(r.events, "packet")
	if r.onPacket != nil {
		return r.onPacket(ibIndex, header)
	}
	return true
}

func countEvents(events []string, want string) int {
	n := 0
	for _, e := range events {
		if e == want {
			n++
		}
	}
	return n
}
