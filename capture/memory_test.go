package capture

import "testing"

func TestBufferMemoryBounds(t *testing.T) {
	mem := NewBufferMemory([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 0x1000)

	if !mem.IsValid(0, 0x1000, 8) {
		t.Error("full range should be valid")
	}
	if mem.IsValid(0, 0x1000, 9) {
		t.Error("range past the end should be invalid")
	}
	if mem.IsValid(0, 0xFF0, 4) {
		t.Error("range before base should be invalid")
	}
	if got := mem.MaxContiguousSize(0, 0x1004); got != 4 {
		t.Errorf("MaxContiguousSize = %d, want 4", got)
	}
	if got := mem.MaxContiguousSize(0, 0x2000); got != 0 {
		t.Errorf("MaxContiguousSize past end = %d, want 0", got)
	}

	buf := make([]byte, 4)
	if !mem.Copy(buf, 0, 0x1002, 4) {
		t.Fatal("Copy in range should succeed")
	}
	want := []byte{3, 4, 5, 6}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, buf[i], want[i])
		}
	}
	if mem.Copy(buf, 0, 0x1006, 4) {
		t.Error("Copy past the end should fail")
	}
}

func TestReadDwords(t *testing.T) {
	mem := NewBufferMemory([]byte{
		0x01, 0x00, 0x00, 0x00,
		0xFF, 0xFF, 0xFF, 0xFF,
	}, 0x2000)

	out, err := ReadDwords(mem, 0, 0x2000, 2)
	if err != nil {
		t.Fatalf("ReadDwords: %v", err)
	}
	if out[0] != 1 || out[1] != 0xFFFFFFFF {
		t.Errorf("out = %#x, want [0x1 0xffffffff]", out)
	}

	if _, err := ReadDwords(mem, 0, 0x2000, 10); err == nil {
		t.Error("ReadDwords past the end should fail")
	}

	raw, err := ReadDwordsAsBytes(mem, 0, 0x2000, 1)
	if err != nil {
		t.Fatalf("ReadDwordsAsBytes: %v", err)
	}
	if len(raw) != 4 || raw[0] != 0x01 {
		t.Errorf("raw = %#x, want [0x01 0x00 0x00 0x00]", raw)
	}
}
