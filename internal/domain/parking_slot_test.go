package domain

import "testing"

func TestSlotNumericSuffix(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"P1", 1},
		{"P10", 10},
		{"B2", 2},
		{"VIP", 0},
		{"A1B2", 12}, // các chữ số được ghép theo thứ tự xuất hiện
		{"", 0},
	}
	for _, c := range cases {
		if got := SlotNumericSuffix(c.label); got != c.want {
			t.Errorf("SlotNumericSuffix(%q) = %d, want %d", c.label, got, c.want)
		}
	}
}

func TestSortSlots_NumericNotLexicographic(t *testing.T) {
	slots := []ParkingSlot{
		{ID: 1, SlotNumber: "P10"},
		{ID: 2, SlotNumber: "P2"},
		{ID: 3, SlotNumber: "P1"},
	}
	SortSlots(slots)

	want := []string{"P1", "P2", "P10"}
	for i, w := range want {
		if slots[i].SlotNumber != w {
			t.Fatalf("vị trí %d: expected %s, got %s", i, w, slots[i].SlotNumber)
		}
	}
}

func TestSortSlots_StableOnEqualSuffix(t *testing.T) {
	// "VIP" và "A" đều không có chữ số, giữ nguyên thứ tự chèn
	slots := []ParkingSlot{
		{ID: 1, SlotNumber: "VIP"},
		{ID: 2, SlotNumber: "A"},
		{ID: 3, SlotNumber: "P1"},
	}
	SortSlots(slots)

	if slots[0].SlotNumber != "VIP" || slots[1].SlotNumber != "A" {
		t.Errorf("thứ tự chèn không được giữ: %s, %s", slots[0].SlotNumber, slots[1].SlotNumber)
	}
}

func TestNormalizeSlotLabel(t *testing.T) {
	if got := NormalizeSlotLabel("  b2 "); got != "B2" {
		t.Errorf("expected B2, got %q", got)
	}
	if got := NormalizeSlotLabel("   "); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestIsOccupancyConsistent(t *testing.T) {
	empty := ParkingSlot{SlotNumber: "P1", Status: StatusAvailable}
	if !empty.IsOccupancyConsistent() {
		t.Error("slot available với các trường null phải nhất quán")
	}

	halfSet := empty
	halfSet.Status = StatusOccupied
	if halfSet.IsOccupancyConsistent() {
		t.Error("slot occupied thiếu thông tin chiếm chỗ phải bị coi là không nhất quán")
	}
}
