package main

import "testing"

func TestPlatformHandoffValidates(t *testing.T) {
	ho, layout := platformHandoff()
	if err := ho.Validate(); err != nil {
		t.Fatalf("platform hand-off record failed validation: %v", err)
	}
	if layout.NLevels() < 2 {
		t.Fatalf("expected a layout with at least 2 paging levels, got %d", layout.NLevels())
	}
}
