package spinner

import "testing"

func TestSpinnerIsInertWithoutTerminal(t *testing.T) {
	if Enabled() {
		t.Skip("stderr is a terminal")
	}
	StartSpinner("Building release...")
	UpdateSpinner("Building overwatch (release, arm) [1/3]...")
	if loader != nil {
		t.Fatalf("spinner started on a non-terminal stderr")
	}
	StopSpinner()
}
