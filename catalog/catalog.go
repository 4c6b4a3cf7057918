// Package catalog describes how to decode the fields of a PM4 packet or
// register once its opcode or address is known. The real catalog,
// generated from hardware register/packet definition tables, is treated
// as an external, read-only contract; this package is the interface plus
// a small hand-built table covering a representative opcode and register
// set, enough to decode the scenarios this module tests without the real
// generated tables.
package catalog

import (
	"fmt"

	"ktkr.us/pkg/cmdhierarchy/pm4"
)

// Opcode values for the draw/dispatch/dma and state-write packets this
// module names by name. IndirectBuffer and IndirectBufferChain are the
// same values pm4 recognizes for control flow, re-exported here so a
// single catalog entry can describe their fields for display too.
const (
	OpNop                 uint8 = 0x10
	OpIndirectBuffer            = pm4.OpIndirectBuffer
	OpIndirectBufferChain       = pm4.OpIndirectBufferChain
	OpSetContextReg       uint8 = 0x22
	OpLoadState           uint8 = 0x24
	OpEventWrite          uint8 = 0x25
	OpDrawIndxOffset      uint8 = 0x30
	OpDrawIndirect        uint8 = 0x31
	OpDrawIndxIndirect    uint8 = 0x32
	OpDrawIndirectMulti   uint8 = 0x33
	OpDrawAuto            uint8 = 0x34
)

// EnumHandle names a small lookup table of value->name, e.g. a primitive
// topology or event-type enum referenced from a PacketField.
type EnumHandle uint8

const (
	EnumNone EnumHandle = iota
	EnumPrimType
	EnumEventType
)

// PacketField describes one decoded field of a type-7 packet's payload.
type PacketField struct {
	Name        string
	DwordOffset uint32
	Mask        uint32
	Shift       uint8
	Enum        EnumHandle
}

// PacketSchema describes how to decode one opcode's payload.
type PacketSchema struct {
	Opcode uint8
	Name   string
	Fields []PacketField
}

// RegField describes one bitfield of a register's value.
type RegField struct {
	Name  string
	Mask  uint32
	Shift uint8
}

// RegSchema describes one register address.
type RegSchema struct {
	Addr   uint32
	Name   string
	Fields []RegField
}

// Unknown and UnknownReg are the sentinel schemas the builder substitutes
// when PacketInfo or RegInfo reports no entry for an opcode or register
// address. Their presence, rather than an error, is what
// lets the builder keep decoding past packets it doesn't recognize,
// the same "known keys get real handling, everything else falls through"
// shape as flac.DecodeTags' blockType switch, whose default case still
// returns a usable (if generic) result instead of aborting the whole
// decode for every unrecognized block.
var Unknown = PacketSchema{Name: "UNKNOWN"}
var UnknownReg = RegSchema{Name: "UNKNOWN"}

// Catalog is the read-only contract the hierarchy builder consumes to
// decode packet and register fields for display.
type Catalog interface {
	PacketInfo(opcode uint8) (PacketSchema, bool)
	RegInfo(addr uint32) (RegSchema, bool)
	EnumName(h EnumHandle, value uint32) string
	OpcodeName(opcode uint8) string
}

// Static is a hand-built, in-memory Catalog.
type Static struct {
	packets map[uint8]PacketSchema
	regs    map[uint32]RegSchema
	enums   map[EnumHandle]map[uint32]string
}

func (c *Static) PacketInfo(opcode uint8) (PacketSchema, bool) {
	s, ok := c.packets[opcode]
	return s, ok
}

func (c *Static) RegInfo(addr uint32) (RegSchema, bool) {
	s, ok := c.regs[addr]
	return s, ok
}

func (c *Static) EnumName(h EnumHandle, value uint32) string {
	names, ok := c.enums[h]
	if !ok {
		return fmt.Sprintf("0x%x", value)
	}
	name, ok := names[value]
	if !ok {
		return fmt.Sprintf("0x%x", value)
	}
	return name
}

func (c *Static) OpcodeName(opcode uint8) string {
	if s, ok := c.packets[opcode]; ok {
		return s.Name
	}
	return fmt.Sprintf("UNKNOWN_OPCODE_0x%02x", opcode)
}

// register address families: four quartiles of the 16-bit offset space,
// modeling register writes spanning four distinct address-space
// families without needing the real hardware layout.
const (
	regFamilyConfig  = 0x0000
	regFamilyContext = 0x4000
	regFamilyUche    = 0x8000
	regFamilyCP      = 0xC000
)

// NewStatic builds the reference catalog covering the opcodes and
// registers this module's tests exercise by name.
func NewStatic() *Static {
	c := &Static{
		packets: map[uint8]PacketSchema{},
		regs:    map[uint32]RegSchema{},
		enums:   map[EnumHandle]map[uint32]string{},
	}

	c.enums[EnumPrimType] = map[uint32]string{
		0: "POINTLIST", 1: "LINELIST", 2: "LINESTRIP", 3: "TRILIST", 4: "TRISTRIP", 5: "TRIFAN",
	}
	c.enums[EnumEventType] = map[uint32]string{
		0x07: "CACHE_FLUSH_TS", 0x19: "BLIT", 0x2C: "VS_DEALLOC", 0x2D: "RB_DONE_TS",
	}

	addPacket := func(s PacketSchema) { c.packets[s.Opcode] = s }

	addPacket(PacketSchema{Opcode: OpNop, Name: "NOP"})
	addPacket(PacketSchema{Opcode: OpDrawIndxOffset, Name: "DRAW_INDX_OFFSET", Fields: []PacketField{
		{Name: "PrimType", DwordOffset: 0, Mask: 0x3F, Shift: 0, Enum: EnumPrimType},
		{Name: "NumIndices", DwordOffset: 2, Mask: 0xFFFFFFFF, Shift: 0},
	}})
	addPacket(PacketSchema{Opcode: OpDrawIndirect, Name: "DRAW_INDIRECT", Fields: []PacketField{
		{Name: "PrimType", DwordOffset: 0, Mask: 0x3F, Shift: 0, Enum: EnumPrimType},
		{Name: "IndirectAddrLo", DwordOffset: 1, Mask: 0xFFFFFFFF, Shift: 0},
	}})
	addPacket(PacketSchema{Opcode: OpDrawIndxIndirect, Name: "DRAW_INDX_INDIRECT", Fields: []PacketField{
		{Name: "PrimType", DwordOffset: 0, Mask: 0x3F, Shift: 0, Enum: EnumPrimType},
	}})
	addPacket(PacketSchema{Opcode: OpDrawIndirectMulti, Name: "DRAW_INDIRECT_MULTI", Fields: []PacketField{
		{Name: "PrimType", DwordOffset: 0, Mask: 0x3F, Shift: 0, Enum: EnumPrimType},
		{Name: "DrawCount", DwordOffset: 1, Mask: 0xFFFFFFFF, Shift: 0},
	}})
	addPacket(PacketSchema{Opcode: OpDrawAuto, Name: "DRAW_AUTO", Fields: []PacketField{
		{Name: "PrimType", DwordOffset: 0, Mask: 0x3F, Shift: 0, Enum: EnumPrimType},
	}})
	addPacket(PacketSchema{Opcode: OpSetContextReg, Name: "SET_CONTEXT_REG", Fields: []PacketField{
		{Name: "RegAddr", DwordOffset: 0, Mask: 0xFFFFFFFF, Shift: 0},
		{Name: "Value", DwordOffset: 1, Mask: 0xFFFFFFFF, Shift: 0},
	}})
	addPacket(PacketSchema{Opcode: OpLoadState, Name: "LOAD_STATE", Fields: []PacketField{
		{Name: "StateBlockAddr", DwordOffset: 0, Mask: 0xFFFFFFFF, Shift: 0},
	}})
	addPacket(PacketSchema{Opcode: OpEventWrite, Name: "EVENT_WRITE", Fields: []PacketField{
		{Name: "EventType", DwordOffset: 0, Mask: 0xFF, Shift: 0, Enum: EnumEventType},
	}})
	addPacket(PacketSchema{Opcode: OpIndirectBuffer, Name: "INDIRECT_BUFFER", Fields: []PacketField{
		{Name: "AddrLo", DwordOffset: 0, Mask: 0xFFFFFFFF, Shift: 0},
		{Name: "AddrHi", DwordOffset: 1, Mask: 0xFFFF, Shift: 0},
		{Name: "SizeDwords", DwordOffset: 2, Mask: 0xFFFFFFFF, Shift: 0},
	}})
	addPacket(PacketSchema{Opcode: OpIndirectBufferChain, Name: "INDIRECT_BUFFER_CHAIN", Fields: []PacketField{
		{Name: "AddrLo", DwordOffset: 0, Mask: 0xFFFFFFFF, Shift: 0},
		{Name: "AddrHi", DwordOffset: 1, Mask: 0xFFFF, Shift: 0},
		{Name: "SizeDwords", DwordOffset: 2, Mask: 0xFFFFFFFF, Shift: 0},
	}})

	addReg := func(s RegSchema) { c.regs[s.Addr] = s }
	addReg(RegSchema{Addr: regFamilyConfig + 0x140, Name: "RB_MRT_CONTROL", Fields: []RegField{
		{Name: "ColorFormat", Mask: 0xFF, Shift: 0},
		{Name: "BlendEnable", Mask: 0x1, Shift: 8},
	}})
	addReg(RegSchema{Addr: regFamilyContext + 0x210, Name: "VFD_CONTROL_0", Fields: []RegField{
		{Name: "VertexCount", Mask: 0xFFFF, Shift: 0},
	}})
	addReg(RegSchema{Addr: regFamilyUche + 0x30, Name: "SP_VS_CONFIG", Fields: []RegField{
		{Name: "NumSamplers", Mask: 0xF, Shift: 0},
		{Name: "NumTextures", Mask: 0xF, Shift: 4},
	}})
	addReg(RegSchema{Addr: regFamilyCP + 0x10, Name: "CP_PROTECT_CNTL", Fields: []RegField{
		{Name: "Enable", Mask: 0x1, Shift: 0},
	}})

	return c
}
