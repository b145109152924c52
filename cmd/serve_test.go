package cmd

import (
	"testing"
)

func TestNewServeCmdFlags(t *testing.T) {
	cmd := newServeCmd()

	tests := []struct {
		flag     string
		expected string
	}{
		{"transport", "stdio"},
		{"http-addr", ":8080"},
		{"config-dir", ""},
		{"debug", "false"},
		{"metrics-enabled", "true"},
		{"metrics-addr", ":9090"},
	}

	for _, tt := range tests {
		f := cmd.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("expected flag %q to be defined", tt.flag)
			continue
		}
		if f.DefValue != tt.expected {
			t.Errorf("flag %q default = %q, want %q", tt.flag, f.DefValue, tt.expected)
		}
	}
}

func TestRunServeRejectsUnknownTransport(t *testing.T) {
	err := runServe("carrier-pigeon", false, ":8080", t.TempDir(), MetricsConfig{})
	if err == nil {
		t.Fatal("expected error for unsupported transport")
	}
}
