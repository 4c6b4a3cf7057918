package catalog

import "testing"

func TestStaticKnownOpcode(t *testing.T) {
	c := NewStatic()

	schema, ok := c.PacketInfo(OpDrawIndxOffset)
	if !ok {
		t.Fatal("PacketInfo(OpDrawIndxOffset) missing from the static catalog")
	}
	if schema.Name != "DRAW_INDX_OFFSET" {
		t.Errorf("Name = %q, want DRAW_INDX_OFFSET", schema.Name)
	}
	if len(schema.Fields) == 0 {
		t.Error("DRAW_INDX_OFFSET should decode at least one field")
	}

	if name := c.OpcodeName(OpDrawIndxOffset); name != "DRAW_INDX_OFFSET" {
		t.Errorf("OpcodeName = %q, want DRAW_INDX_OFFSET", name)
	}
}

func TestStaticUnknownOpcodeFallsThrough(t *testing.T) {
	c := NewStatic()

	if _, ok := c.PacketInfo(0xAA); ok {
		t.Fatal("0xAA should not be in the static catalog")
	}
	if name := c.OpcodeName(0xAA); name == "" {
		t.Error("OpcodeName should still return a usable placeholder for an unknown opcode")
	}
}

func TestEnumNameFallsBackToHexForUnknownValue(t *testing.T) {
	c := NewStatic()

	if got := c.EnumName(EnumPrimType, 1); got != "LINELIST" {
		t.Errorf("EnumName(EnumPrimType, 1) = %q, want LINELIST", got)
	}
	if got := c.EnumName(EnumPrimType, 0xFF); got != "0xff" {
		t.Errorf("EnumName for an unrecognized value = %q, want 0xff", got)
	}
	if got := c.EnumName(EnumNone, 7); got != "0x7" {
		t.Errorf("EnumName(EnumNone, 7) = %q, want 0x7", got)
	}
}

func TestRegInfo(t *testing.T) {
	c := NewStatic()

	schema, ok := c.RegInfo(0xC010) // regFamilyCP + 0x10
	if !ok {
		t.Fatal("RegInfo(0xC010) missing from the static catalog")
	}
	if schema.Name != "CP_PROTECT_CNTL" {
		t.Errorf("Name = %q, want CP_PROTECT_CNTL", schema.Name)
	}

	if _, ok := c.RegInfo(0x1234); ok {
		t.Fatal("0x1234 should not be in the static catalog")
	}
}
