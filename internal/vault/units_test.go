package vault

import "testing"

func TestParseUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"1.0", 18, "1000000000000000000"},
		{"0.5", 18, "500000000000000000"},
		{"1", 18, "1000000000000000000"},
		{"25", 0, "25"},
		{".25", 2, "25"},
		{"1000000000000000000000", 18, "1000000000000000000000000000000000000000"},
	}

	for _, tc := range cases {
		got, err := ParseUnits(tc.amount, tc.decimals)
		if err != nil {
			t.Fatalf("ParseUnits(%q, %d): %v", tc.amount, tc.decimals, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseUnits(%q, %d) = %s, want %s", tc.amount, tc.decimals, got, tc.want)
		}
	}
}

func TestParseUnitsInvalid(t *testing.T) {
	invalid := []struct {
		amount   string
		decimals int
	}{
		{"", 18},
		{"-1", 18},
		{"1.123", 2},
		{"abc", 18},
		{"1.2.3", 18},
	}

	for _, tc := range invalid {
		if _, err := ParseUnits(tc.amount, tc.decimals); err == nil {
			t.Fatalf("ParseUnits(%q, %d): expected error", tc.amount, tc.decimals)
		}
	}
}
