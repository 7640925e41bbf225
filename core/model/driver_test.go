package model

import "testing"

func TestDriverFatigued(t *testing.T) {
	cases := []struct {
		name  string
		hours []string
		want  bool
	}{
		{"empty history", nil, false},
		{"last above threshold", []string{"6", "9"}, true},
		{"last equal threshold", []string{"10", "8"}, false},
		{"only last entry counts", []string{"12", "12", "7.5"}, false},
		{"decimal above threshold", []string{"8.01"}, true},
		{"padded value", []string{" 9 "}, true},
		{"unparseable", []string{"abc"}, false},
		{"blank entry", []string{"9", ""}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Driver{Name: "d", PastWeekHours: c.hours}
			if got := d.Fatigued(); got != c.want {
				t.Fatalf("Fatigued() = %v, want %v", got, c.want)
			}
		})
	}
}
