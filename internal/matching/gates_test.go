package matching

import (
	"testing"

	"tornedge/internal/features"
)

func TestGates(t *testing.T) {
	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"fh close", IsHeightMatched(0.5, 0.6), true},
		{"fh far", IsHeightMatched(0.5, 1.0), false},
		{"fh boundary", IsHeightMatched(0.0, 0.25), false},
		{"fa close", IsAngleMatched(30, 39.5), true},
		{"fa boundary", IsAngleMatched(30, 40), false},
		{"fa negative side", IsAngleMatched(30, 21), true},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestPositionGate(t *testing.T) {
	all := []features.Position{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for _, p := range all {
		if !IsPositionMatched(p, p) {
			t.Errorf("%v should match itself", p)
		}
		for _, q := range all {
			if q != p && IsPositionMatched(p, q) {
				t.Errorf("%v should not match %v", p, q)
			}
		}
	}
}

func TestOptionsAdmit(t *testing.T) {
	q := features.FeatureSet{Height: 0.3, Angle: 40, Position: features.Position{1, 0}}
	c := features.FeatureSet{Height: 0.35, Angle: 70, Position: features.Position{1, 1}}

	if !(Options{UseHeight: true}).admit(q, c) {
		t.Error("height gate should admit")
	}
	if (Options{UseHeight: true, UseAngle: true}).admit(q, c) {
		t.Error("angle gate should reject")
	}
	if (Options{UsePosition: true}).admit(q, c) {
		t.Error("position gate should reject")
	}
	if !(Options{}).admit(q, c) {
		t.Error("no gates should admit everything")
	}
}
