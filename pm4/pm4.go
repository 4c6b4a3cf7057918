// Package pm4 walks a PM4 command stream: a sequence of dword headers,
// each either a type-4 register-write burst or a type-7 opcode packet,
// interspersed with indirect-buffer transfers that jump the walk into
// another memory range (nested, or tail-call "chained"). It knows nothing
// about draws, events, or trees, that's the hierarchy package's job.
package pm4

// PacketType classifies a decoded PM4 header word.
type PacketType uint8

const (
	// PacketType4 is a register-write burst: Count dwords follow,
	// written sequentially starting at RegOffset.
	PacketType4 PacketType = iota
	// PacketType7 is an opcode packet: Count dwords of opcode-specific
	// payload follow the header.
	PacketType7
	// PacketOther is a header class this module does not interpret
	// (reserved type-0/type-2 space). The walker skips exactly one
	// dword and continues; it never aborts on an unrecognized class.
	PacketOther
)

func (t PacketType) String() string {
	switch t {
	case PacketType4:
		return "Type4"
	case PacketType7:
		return "Type7"
	default:
		return "Other"
	}
}

// IbKind is how an indirect buffer was reached.
type IbKind uint8

const (
	// IbNormal is a top-level indirect buffer referenced directly by a
	// submit's buffer list.
	IbNormal IbKind = iota
	// IbCall is reached via a CP_INDIRECT_BUFFER packet. The call nests:
	// control returns to the calling buffer's remaining dwords once the
	// callee's walk (and its own on_ib_end) completes.
	IbCall
	// IbChain is reached via a CP_INDIRECT_BUFFER_CHAIN packet. The
	// transfer is a tail call: the calling buffer's walk ends right
	// there, and only the chain run's terminal buffer gets an
	// on_ib_end callback.
	IbChain
)

func (k IbKind) String() string {
	switch k {
	case IbNormal:
		return "Normal"
	case IbCall:
		return "Call"
	default:
		return "Chain"
	}
}

// Control-flow opcodes are recognized directly by the walker, the way
// real PM4-consuming hardware does: the opcode that means "jump" is
// fixed, independent of whatever packet catalog a consumer layers on top
// for field decoding. The catalog package re-exports these same values
// for display purposes.
const (
	OpIndirectBuffer      uint8 = 0x3F
	OpIndirectBufferChain uint8 = 0x57
)

// header bit layout (this module's own, not silicon-accurate):
//
//	bits [31:30] packet class: 0=other, 1=type4, 2=other, 3=type7
//	type4: bit 29 = CE flag, bits [28:16] = count, bits [15:0] = reg offset
//	type7: bit 29 = CE flag, bits [28:24] = reserved, bits [23:16] = opcode, bits [15:0] = count
const (
	classShift = 30
	classMask  = 0x3
	ceBit      = 1 << 29
)

// Classify decodes a header dword into its packet class, CE flag, the
// opcode (type-7) or register offset (type-4), and the payload dword
// count that follows the header.
func Classify(header uint32) (class PacketType, ce bool, opcodeOrRegOffset uint32, count uint32) {
	ce = header&ceBit != 0
	switch (header >> classShift) & classMask {
	case 1:
		return PacketType4, ce, header & 0xFFFF, (header >> 16) & 0x1FFF
	case 3:
		return PacketType7, ce, (header >> 16) & 0xFF, header & 0xFFFF
	default:
		return PacketOther, ce, 0, 0
	}
}
