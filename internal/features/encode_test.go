package features

import "testing"

func TestEncodeStance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"Orthodox", 4},
		{"Southpaw", 3},
		{"Switch", 2},
		{"Bob and Weave", 1},
		{"Open Stance", 1},
		{"", 1},
		{"SWITCH", 1},
	}
	for _, tt := range tests {
		if got := EncodeStance(tt.in); got != tt.want {
			t.Errorf("EncodeStance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeStanceFixesTrailingSpace(t *testing.T) {
	if got := EncodeStance(NormalizeStance("Switch ")); got != StanceSwitch {
		t.Errorf("\"Switch \" encoded as %v, want %v", got, StanceSwitch)
	}
	if got := EncodeStance("Switch "); got != StanceOther {
		t.Errorf("unnormalized \"Switch \" encoded as %v, want %v", got, StanceOther)
	}
}

func TestEncodeBetterRank(t *testing.T) {
	cases := map[string]float64{"Red": -1, "Blue": 1, "": 0, "neither": 0, "red": 0}
	for in, want := range cases {
		if got := EncodeBetterRank(in); got != want {
			t.Errorf("EncodeBetterRank(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEncodeTitleBout(t *testing.T) {
	cases := map[string]float64{
		"True": 1, "true": 1, "1": 1, "2.0": 1,
		"False": 0, "false": 0, "0": 0, "": 0, "NaN": 0,
	}
	for in, want := range cases {
		if got := EncodeTitleBout(in); got != want {
			t.Errorf("EncodeTitleBout(%q) = %v, want %v", in, got, want)
		}
	}
}
