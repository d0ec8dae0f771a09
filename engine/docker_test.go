package engine

import (
	"strings"
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	p := DetectPlatform()
	if !strings.HasPrefix(p, "linux/") {
		t.Errorf("DetectPlatform() = %q, want linux/<arch>", p)
	}
}

func TestPlatformSpec(t *testing.T) {
	tests := []struct {
		in       string
		os, arch string
	}{
		{"linux/amd64", "linux", "amd64"},
		{"linux/arm64", "linux", "arm64"},
		{"arm64", "linux", "arm64"},
	}

	for _, tt := range tests {
		got := platformSpec(tt.in)
		if got == nil {
			t.Fatalf("platformSpec(%q) = nil", tt.in)
		}
		if got.OS != tt.os || got.Architecture != tt.arch {
			t.Errorf("platformSpec(%q) = %s/%s, want %s/%s", tt.in, got.OS, got.Architecture, tt.os, tt.arch)
		}
	}

	if platformSpec("") != nil {
		t.Error("platformSpec(\"\") should be nil")
	}
}
