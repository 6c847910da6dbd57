package rmw

import (
	"testing"

	"github.com/robomesh/meshkit/errors"
)

// ============================================================================
// 1. Argument parsing
// ============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantRemap map[string]string
		wantParam map[string]string
		wantErr   bool
	}{
		{
			name: "no marker means nothing interpreted",
			args: []string{"talker", "--verbose", "-r", "looks:=interpreted"},
		},
		{
			name:      "remap rules after marker",
			args:      []string{"talker", ArgsMarker, "-r", "chatter:=conversation", "--remap", "talker:=speaker"},
			wantRemap: map[string]string{"chatter": "conversation", "talker": "speaker"},
		},
		{
			name:      "params after marker",
			args:      []string{ArgsMarker, "-p", "rate:=10", "--param", "frame:=base"},
			wantParam: map[string]string{"rate": "10", "frame": "base"},
		},
		{
			name:      "double dash ends the region",
			args:      []string{ArgsMarker, "-r", "a:=b", "--", "-r", "ignored:=yes"},
			wantRemap: map[string]string{"a": "b"},
		},
		{
			name:    "unknown flag in region",
			args:    []string{ArgsMarker, "--frobnicate"},
			wantErr: true,
		},
		{
			name:    "missing operand",
			args:    []string{ArgsMarker, "-r"},
			wantErr: true,
		},
		{
			name:    "malformed rule",
			args:    []string{ArgsMarker, "-r", "no-separator"},
			wantErr: true,
		},
		{
			name:    "empty rhs",
			args:    []string{ArgsMarker, "-r", "from:="},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, errors.ErrCodeInvalidArgs) {
					t.Errorf("expected INVALID_ARGS, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs error: %v", err)
			}
			for from, to := range tt.wantRemap {
				if parsed.RemapRules[from] != to {
					t.Errorf("RemapRules[%q] = %q, want %q", from, parsed.RemapRules[from], to)
				}
			}
			if len(parsed.RemapRules) != len(tt.wantRemap) {
				t.Errorf("got %d remap rules, want %d", len(parsed.RemapRules), len(tt.wantRemap))
			}
			for k, v := range tt.wantParam {
				if parsed.Params[k] != v {
					t.Errorf("Params[%q] = %q, want %q", k, parsed.Params[k], v)
				}
			}
		})
	}
}

// ============================================================================
// 2. Domain id resolution
// ============================================================================

func TestDomainResolutionPrecedence(t *testing.T) {
	t.Setenv(DomainEnvVar, "10")

	// Environment fallback
	h, err := Init(InitOptions{})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	defer h.Finalize()
	if h.DomainID() != 10 {
		t.Errorf("DomainID() = %d, want 10 from env", h.DomainID())
	}

	// Explicit override beats the environment
	h2, err := Init(InitOptions{DomainID: 11, HasDomainID: true})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	defer h2.Finalize()
	if h2.DomainID() != 11 {
		t.Errorf("DomainID() = %d, want 11 from override", h2.DomainID())
	}
}

func TestDomainDefaultsToZero(t *testing.T) {
	t.Setenv(DomainEnvVar, "")

	h, err := Init(InitOptions{})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	defer h.Finalize()
	if h.DomainID() != 0 {
		t.Errorf("DomainID() = %d, want 0", h.DomainID())
	}
}

func TestDomainEnvUnparseable(t *testing.T) {
	t.Setenv(DomainEnvVar, "not-a-number")

	_, err := Init(InitOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidDomain) {
		t.Errorf("expected INVALID_DOMAIN, got %v", err)
	}
}

func TestDomainOutOfRange(t *testing.T) {
	_, err := Init(InitOptions{DomainID: MaxDomainID + 1, HasDomainID: true})
	if !errors.Is(err, errors.ErrCodeInvalidDomain) {
		t.Errorf("expected INVALID_DOMAIN for override, got %v", err)
	}

	t.Setenv(DomainEnvVar, "500")
	_, err = Init(InitOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidDomain) {
		t.Errorf("expected INVALID_DOMAIN for env, got %v", err)
	}
}

// ============================================================================
// 3. Handle state machine
// ============================================================================

func TestHandleLifecycle(t *testing.T) {
	h, err := Init(InitOptions{})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	if !h.IsValid() {
		t.Fatal("expected fresh handle to be valid")
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	if h.IsValid() {
		t.Error("expected handle invalid after shutdown")
	}

	// Shutdown is not idempotent at this level.
	if err := h.Shutdown(); !errors.Is(err, errors.ErrCodeAlreadyShutdown) {
		t.Errorf("expected ALREADY_SHUTDOWN, got %v", err)
	}

	if err := h.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if h.IsValid() {
		t.Error("expected handle invalid after finalize")
	}

	// Finalize runs exactly once.
	if err := h.Finalize(); !errors.Is(err, errors.ErrCodeClosed) {
		t.Errorf("expected CLOSED, got %v", err)
	}
}

func TestFinalizeWithoutShutdown(t *testing.T) {
	h, err := Init(InitOptions{})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	// Skipping explicit shutdown is legal; finalize shuts down internally.
	if err := h.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if h.IsValid() {
		t.Error("expected handle invalid after finalize")
	}
}

// ============================================================================
// 4. Subject namespaces
// ============================================================================

func TestSubjectNamespaces(t *testing.T) {
	h, err := Init(InitOptions{DomainID: 7, HasDomainID: true})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	defer h.Finalize()

	if got := h.TopicSubject("chatter"); got != "mesh.7.chatter" {
		t.Errorf("TopicSubject = %q, want %q", got, "mesh.7.chatter")
	}
	if got := h.GraphSubject("talker"); got != "mesh.7._graph.talker" {
		t.Errorf("GraphSubject = %q, want %q", got, "mesh.7._graph.talker")
	}
}

func TestRemapRulesAreCopied(t *testing.T) {
	h, err := Init(InitOptions{Args: []string{ArgsMarker, "-r", "a:=b"}})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	defer h.Finalize()

	rules := h.RemapRules()
	rules["a"] = "mutated"
	if h.RemapRules()["a"] != "b" {
		t.Error("expected RemapRules to return a copy")
	}
}
