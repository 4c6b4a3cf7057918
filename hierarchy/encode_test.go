package hierarchy

import (
	"encoding/binary"

	"ktkr.us/pkg/cmdhierarchy/catalog"
)

// Local re-encoding of pm4's documented (non-silicon-accurate) header
// layout, since pm4's own classShift/ceBit are unexported, and these tests
// only need to produce bytes a real pm4.Classify call will decode the
// same way, not to exercise pm4's own encoder.
const (
	testClassShift = 30
)

func encodeType7(opcode uint8, payload []uint32) []uint32 {
	header := uint32(3)<<testClassShift | uint32(opcode)<<16 | uint32(len(payload))
	return append([]uint32{header}, payload...)
}

func encodeType4(regOffset uint32, values []uint32) []uint32 {
	header := uint32(1)<<testClassShift | uint32(len(values))<<16 | regOffset
	return append([]uint32{header}, values...)
}

func encodeIBPacket(opcode uint8, va uint64, sizeDwords uint32) []uint32 {
	return encodeType7(opcode, []uint32{uint32(va), uint32(va>>32) & 0xFFFF, sizeDwords})
}

func toBytes(dwords []uint32) []byte {
	out := make([]byte, len(dwords)*4)
	for i, d := range dwords {
		binary.LittleEndian.PutUint32(out[i*4:], d)
	}
	return out
}

func drawIndxOffset(primType, numIndices uint32) []uint32 {
	return encodeType7(catalog.OpDrawIndxOffset, []uint32{primType, 0, numIndices})
}

func setContextReg(addr, value uint32) []uint32 {
	return encodeType7(catalog.OpSetContextReg, []uint32{addr, value})
}

func nop() []uint32 {
	return encodeType7(catalog.OpNop, nil)
}

// countNodesOfType returns every node index in h's Store matching t.
func countNodesOfType(h *CommandHierarchy, t NodeType) []NodeIndex {
	var out []NodeIndex
	s := h.Store()
	for i := 0; i < s.NumNodes(); i++ {
		n := NodeIndex(i)
		if s.Type(n) == t {
			out = append(out, n)
		}
	}
	return out
}

// findIb returns the Ib node with the given IbAux.IbIndex.
func findIb(h *CommandHierarchy, ibIndex int) (NodeIndex, bool) {
	for _, n := range countNodesOfType(h, NodeIb) {
		if h.Store().Ib(n).IbIndex == ibIndex {
			return n, true
		}
	}
	return NoNode, false
}
