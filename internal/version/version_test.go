package version

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		semantic bool
	}{
		{"plain semver", "1.0.8", true},
		{"v prefix", "v1.0.8", true},
		{"prerelease", "1.2.0-rc.1", true},
		{"branch head", "develop", false},
		{"commit hash", "git-8f3ab12", false},
		{"short hash", "8f3ab12", false},
		{"whitespace trimmed", "  v2.1.0\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse(tt.raw)
			if d.IsSemantic() != tt.semantic {
				t.Errorf("Parse(%q).IsSemantic() = %v, want %v", tt.raw, d.IsSemantic(), tt.semantic)
			}
			if d.IsZero() {
				t.Errorf("Parse(%q) should not be zero", tt.raw)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	d := Parse("")
	if !d.IsZero() {
		t.Error("empty ref should parse to the zero descriptor")
	}
	if d.IsSemantic() {
		t.Error("zero descriptor must not be semantic")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		want    int
		ordered bool
	}{
		{"older patch", "v1.0.5", "v1.0.8", -1, true},
		{"newer minor", "1.2.0", "1.1.9", 1, true},
		{"equal across v prefix", "v1.0.8", "1.0.8", 0, true},
		{"opaque left", "develop", "1.0.8", 0, false},
		{"opaque right", "1.0.8", "8f3ab12", 0, false},
		{"both opaque", "develop", "main", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ordered := Parse(tt.a).Compare(Parse(tt.b))
			if ordered != tt.ordered {
				t.Fatalf("Compare(%q, %q) ordered = %v, want %v", tt.a, tt.b, ordered, tt.ordered)
			}
			if ordered && got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"semantic equal", "v1.0.8", "1.0.8", true},
		{"semantic unequal", "1.0.8", "1.0.9", false},
		{"opaque equal", "develop", "develop", true},
		{"opaque unequal", "develop", "main", false},
		{"mixed never equal", "develop", "1.0.8", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.a).Equal(Parse(tt.b)); got != tt.want {
				t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
