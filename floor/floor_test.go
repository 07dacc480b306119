package floor

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for n := int(Min); n <= int(Max); n++ {
		if n == 0 {
			continue
		}
		f := Floor(n)
		s := f.String()
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", s, err)
		}
		if got != f {
			t.Errorf("Parse(String(%d)) = %d, want %d", n, got, n)
		}
		if !Valid(s) {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []string{"0", "B0", "1000", "", "B100", "-1", "B", "+3", "1a"}
	for _, s := range cases {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}

func TestDirectionBetween(t *testing.T) {
	lo, _ := Parse("B3")
	hi, _ := Parse("5")
	if DirectionBetween(lo, hi) != Up {
		t.Errorf("expected Up")
	}
	if DirectionBetween(hi, lo) != Down {
		t.Errorf("expected Down")
	}
	if DirectionBetween(hi, hi) != Idle {
		t.Errorf("expected Idle")
	}
}

func TestStepSkipsZero(t *testing.T) {
	one, _ := Parse("1")
	if got := one.Step(Down); got.String() != "B1" {
		t.Errorf("Step(1, Down) = %v, want B1", got)
	}
	negOne, _ := Parse("B1")
	if got := negOne.Step(Up); got.String() != "1" {
		t.Errorf("Step(B1, Up) = %v, want 1", got)
	}
}
