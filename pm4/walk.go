package pm4

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"ktkr.us/pkg/cmdhierarchy/capture"
)

// Receiver is the callback contract a consumer (the hierarchy builder)
// implements to observe a walk. Every "continue?" callback may return
// false to abort the entire build, the same way flac.DecodeTags stops
// and returns an error the instant it sees an invalid block type rather
// than trying to resynchronize.
type Receiver interface {
	OnSubmitStart(submitIndex int, info capture.SubmitInfo)
	OnIbStart(submitIndex int, info capture.IndirectBufferInfo, kind IbKind) bool
	OnPacket(mem capture.MemoryView, submitIndex int, ibIndex int, va uint64, pm4Type PacketType, header uint32) bool
	OnIbEnd(submitIndex int, info capture.IndirectBufferInfo) bool
	OnSubmitEnd(submitIndex int, info capture.SubmitInfo)
}

// errAbort is returned internally when a Receiver callback returns false;
// Run translates it into a nil error, since aborting a walk by request is
// not itself a failure.
var errAbort = errors.New("pm4: walk aborted by receiver")

// Run drives recv over every submit in cp, in order. Submits that are
// dummies or target an engine this module doesn't decode still get an
// OnSubmitStart/OnSubmitEnd pair, the builder needs that pair to create
// and close the Submit node, but their indirect buffers are never read.
func Run(cp capture.Capture, recv Receiver) error {
	for i := 0; i < cp.NumSubmits(); i++ {
		info := cp.SubmitInfo(i)
		recv.OnSubmitStart(i, info)
		if !info.IsDummy && info.EngineType.Decodable() {
			if err := walkTopLevel(cp.MemoryView(), i, info.IndirectBuffers, recv); err != nil {
				if errors.Is(err, errAbort) {
					recv.OnSubmitEnd(i, info)
					return nil
				}
				return errors.Wrapf(err, "submit %d", i)
			}
		}
		recv.OnSubmitEnd(i, info)
	}
	return nil
}

func walkTopLevel(mem capture.MemoryView, submitIndex int, ibs []capture.IndirectBufferInfo, recv Receiver) error {
	for _, ib := range ibs {
		if err := walkIB(mem, submitIndex, ib, IbNormal, recv); err != nil {
			return err
		}
	}
	return nil
}

// walkIB drives one indirect buffer to completion, including any chain
// run it tail-transfers into. The loop body is the chain mechanism: a
// chain transfer replaces ib/kind and loops without calling OnIbEnd for
// the buffer being left, so exactly one OnIbEnd fires for the whole run.
func walkIB(mem capture.MemoryView, submitIndex int, ib capture.IndirectBufferInfo, kind IbKind, recv Receiver) error {
	for {
		if !recv.OnIbStart(submitIndex, ib, kind) {
			return errAbort
		}
		if !ib.Skip {
			next, chained, err := walkPackets(mem, submitIndex, ib, recv)
			if err != nil {
				return err
			}
			if chained {
				ib = next
				kind = IbChain
				continue
			}
		}
		if !recv.OnIbEnd(submitIndex, ib) {
			return errAbort
		}
		return nil
	}
}

// walkPackets walks one indirect buffer's dwords, decoding type-4/type-7
// headers and recursing into Call targets inline. It returns (target,
// true, nil) the instant it hits a Chain transfer, handing control back
// to walkIB's loop instead of recursing, since a chain never returns.
func walkPackets(mem capture.MemoryView, submitIndex int, ib capture.IndirectBufferInfo, recv Receiver) (capture.IndirectBufferInfo, bool, error) {
	var i uint32
	nextNestedIndex := 0
	for i < ib.SizeDwords {
		va := ib.VA + uint64(i)*4
		var hdrBuf [4]byte
		if !mem.Copy(hdrBuf[:], submitIndex, va, 4) {
			return capture.IndirectBufferInfo{}, false, errors.Errorf("pm4: read header at %#x: out of captured range", va)
		}
		header := binary.LittleEndian.Uint32(hdrBuf[:])
		class, _, opcodeOrReg, count := Classify(header)

		switch class {
		case PacketType7:
			if !recv.OnPacket(mem, submitIndex, ib.Index, va, PacketType7, header) {
				return capture.IndirectBufferInfo{}, false, errAbort
			}
			opcode := uint8(opcodeOrReg)
			if opcode == OpIndirectBuffer || opcode == OpIndirectBufferChain {
				target, err := readIBTarget(mem, submitIndex, va, count, nextNestedIndex)
				if err != nil {
					return capture.IndirectBufferInfo{}, false, err
				}
				nextNestedIndex++
				if opcode == OpIndirectBufferChain {
					return target, true, nil
				}
				if err := walkIB(mem, submitIndex, target, IbCall, recv); err != nil {
					return capture.IndirectBufferInfo{}, false, err
				}
			}
			i += 1 + count
		case PacketType4:
			if !recv.OnPacket(mem, submitIndex, ib.Index, va, PacketType4, header) {
				return capture.IndirectBufferInfo{}, false, errAbort
			}
			i += 1 + count
		default:
			i++
		}
	}
	return capture.IndirectBufferInfo{}, false, nil
}

// readIBTarget decodes a CP_INDIRECT_BUFFER(_CHAIN) packet's 3-dword
// payload: [addr_lo, addr_hi, size_in_dwords]. Index is a placeholder,
// nested buffers have no declared slot, so the builder assigns their
// real ib-index itself and ignores this one.
func readIBTarget(mem capture.MemoryView, submitIndex int, headerVA uint64, count uint32, nestedIndex int) (capture.IndirectBufferInfo, error) {
	if count != 3 {
		return capture.IndirectBufferInfo{}, errors.Errorf("pm4: indirect buffer packet at %#x has %d payload dwords, want 3", headerVA, count)
	}
	payload, err := capture.ReadDwords(mem, submitIndex, headerVA+4, 3)
	if err != nil {
		return capture.IndirectBufferInfo{}, errors.Wrapf(err, "indirect buffer payload at %#x", headerVA)
	}
	va := uint64(payload[0]) | (uint64(payload[1]&0xFFFF) << 32)
	return capture.IndirectBufferInfo{
		Index:      -1 - nestedIndex,
		VA:         va,
		SizeDwords: payload[2],
	}, nil
}
