package util

import (
	"encoding/json"
	"testing"
)

func TestToFloatNumber(t *testing.T) {
	got, err := ToFloat(float64(750))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 750 {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestToFloatString(t *testing.T) {
	got, err := ToFloat("35.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 35.5 {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestToFloatJSONNumber(t *testing.T) {
	got, err := ToFloat(json.Number("16"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 16 {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestToFloatInvalid(t *testing.T) {
	if _, err := ToFloat("not-a-number"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ToFloat(map[string]interface{}{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 50); got != 50 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("7", 50); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}
