package campaign

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
		ok    bool
	}{
		{name: "raising", input: "raising", want: StatusRaising, ok: true},
		{name: "bonded", input: "bonded", want: StatusBonded, ok: true},
		{name: "mixed case", input: "Raising", want: StatusRaising, ok: true},
		{name: "whitespace trimmed", input: "  bonded  ", want: StatusBonded, ok: true},
		{name: "empty string", input: ""},
		{name: "unknown value", input: "draft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStatus(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseStatus(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsStatusTransitionAllowed(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "raising to bonded", from: StatusRaising, to: StatusBonded, want: true},
		{name: "bonded back to raising", from: StatusBonded, to: StatusRaising, want: false},
		{name: "bonded re-entry", from: StatusBonded, to: StatusBonded, want: false},
		{name: "raising to raising", from: StatusRaising, to: StatusRaising, want: false},
		{name: "unspecified to bonded", from: StatusUnspecified, to: StatusBonded, want: false},
		{name: "unspecified to raising", from: StatusUnspecified, to: StatusRaising, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStatusTransitionAllowed(tt.from, tt.to); got != tt.want {
				t.Fatalf("IsStatusTransitionAllowed(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
