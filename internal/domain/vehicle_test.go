package domain

import "testing"

func TestNormalizeVehicleNumber_MixedInput(t *testing.T) {
	got := NormalizeVehicleNumber("ka-01 ab1234")
	if got != "KA01AB1234" {
		t.Errorf("expected KA01AB1234, got %q", got)
	}
}

func TestNormalizeVehicleNumber_AlreadyCanonical(t *testing.T) {
	got := NormalizeVehicleNumber("KA01AB1234")
	if got != "KA01AB1234" {
		t.Errorf("expected KA01AB1234, got %q", got)
	}
}

func TestNormalizeVehicleNumber_Idempotent(t *testing.T) {
	once := NormalizeVehicleNumber("dl 4c - na 0001")
	twice := NormalizeVehicleNumber(once)
	if once != twice {
		t.Errorf("normalize không idempotent: %q != %q", once, twice)
	}
}

func TestNormalizeVehicleNumber_OnlySeparators(t *testing.T) {
	got := NormalizeVehicleNumber(" -- __ .. ")
	if got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestNormalizeVehicleNumber_Empty(t *testing.T) {
	if got := NormalizeVehicleNumber(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
