package migrations

import "testing"

func TestStepsAreStrictlyIncreasing(t *testing.T) {
	steps := Steps()
	if len(steps) == 0 {
		t.Fatal("expected at least one migration step")
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].Version <= steps[i-1].Version {
			t.Fatalf("step %d (%s) does not strictly increase over step %d (%s)",
				steps[i].Version, steps[i].Name, steps[i-1].Version, steps[i-1].Name)
		}
	}
}

func TestStepsHaveNamesAndApply(t *testing.T) {
	for _, s := range Steps() {
		if s.Name == "" {
			t.Errorf("step %d has no name", s.Version)
		}
		if s.Apply == nil {
			t.Errorf("step %d (%s) has no Apply function", s.Version, s.Name)
		}
	}
}
