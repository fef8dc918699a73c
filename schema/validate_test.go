package schema

import "testing"

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"192.168.1.1", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"10.0.0.5", true},
		{"192.168.001.1", true},
		{"256.1.1.1", false},
		{"1.1.1", false},
		{"1.1.1.1.1", false},
		{"", false},
		{" 192.168.1.1", false},
		{"192.168.1.1 ", false},
		{"192.168.1.1\n", false},
		{"192.168.1.-1", false},
		{"a.b.c.d", false},
		{"1..1.1", false},
		{"1.1.1.1234", false},
		{"1,1,1,1", false},
	}
	for _, tc := range cases {
		if got := ValidateAddress(tc.input); got != tc.want {
			t.Errorf("ValidateAddress(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestValidateToken(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"abc123", true},
		{" abc123 ", true},
		{"", false},
		{"   ", false},
		{"\t\n", false},
	}
	for _, tc := range cases {
		if got := ValidateToken(tc.input); got != tc.want {
			t.Errorf("ValidateToken(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
