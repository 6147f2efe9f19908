package version

import "testing"

func TestParseRequirement(t *testing.T) {
	valid := []string{
		"1.0.0",
		"== 1.0.0",
		"!= 1.0.0",
		"> 1.0.0",
		">= 1.0.0",
		"< 2.0.0",
		"<= 2.0.0",
		"~> 1.2",
		"~> 1.2.3",
		">= 1.0.0 and < 2.0.0",
		"~> 1.0 or ~> 2.0",
		">= 1.0.0 and < 2.0.0 or >= 3.0.0",
	}
	for _, s := range valid {
		if _, err := ParseRequirement(s); err != nil {
			t.Errorf("ParseRequirement(%q) returned error: %v", s, err)
		}
	}

	invalid := []string{
		"",
		"and",
		">= ",
		"1.0.0 and",
		"or 1.0.0",
		"bananas",
		"1.0",
	}
	for _, s := range invalid {
		if _, err := ParseRequirement(s); err == nil {
			t.Errorf("ParseRequirement(%q) expected error, got none", s)
		}
	}
}

func TestRequirementMatches(t *testing.T) {
	tests := []struct {
		req     string
		version string
		want    bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.0.1", false},
		{"== 1.0.0", "1.0.0", true},
		{"!= 1.0.0", "1.0.0", false},
		{"!= 1.0.0", "1.0.1", true},
		{"> 1.0.0", "1.0.1", true},
		{"> 1.0.0", "1.0.0", false},
		{">= 1.0.0", "1.0.0", true},
		{"< 2.0.0", "1.9.9", true},
		{"< 2.0.0", "2.0.0", false},
		{"<= 2.0.0", "2.0.0", true},

		// Pessimistic operator widens the last segment.
		{"~> 2.0", "2.0.0", true},
		{"~> 2.0", "2.9.0", true},
		{"~> 2.0", "3.0.0", false},
		{"~> 2.0.1", "2.0.5", true},
		{"~> 2.0.1", "2.1.0", false},
		{"~> 2.0.1", "2.0.0", false},

		// "and" binds tighter than "or".
		{">= 1.0.0 and < 2.0.0", "1.5.0", true},
		{">= 1.0.0 and < 2.0.0", "2.5.0", false},
		{"~> 1.0 or ~> 3.0", "1.2.0", true},
		{"~> 1.0 or ~> 3.0", "2.0.0", false},
		{"~> 1.0 or ~> 3.0", "3.1.0", true},
		{">= 1.0.0 and < 2.0.0 or >= 3.0.0", "2.5.0", false},
		{">= 1.0.0 and < 2.0.0 or >= 3.0.0", "3.5.0", true},
	}
	for _, tt := range tests {
		req := MustParseRequirement(tt.req)
		got := req.Matches(MustParse(tt.version))
		if got != tt.want {
			t.Errorf("(%q).Matches(%q) = %v, want %v", tt.req, tt.version, got, tt.want)
		}
	}
}

func TestRequirementString(t *testing.T) {
	s := ">= 1.0.0 and < 2.0.0"
	if got := MustParseRequirement(s).String(); got != s {
		t.Errorf("String() = %q, want %q", got, s)
	}
}
