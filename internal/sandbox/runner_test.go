package sandbox

import (
	"strings"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"always": ModeAlways,
		"NEVER":  ModeNever,
		"auto":   ModeAuto,
		"":       ModeAuto,
		"bogus":  ModeAuto,
	}
	for input, want := range cases {
		if got := ParseMode(input); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestShouldSandbox(t *testing.T) {
	enabled := NewRunner(Config{Enabled: true}, "/workspace")
	disabled := NewRunner(Config{Enabled: false}, "/workspace")

	if !enabled.ShouldSandbox(ModeAlways) {
		t.Error("always mode should sandbox regardless of Enabled")
	}
	if disabled.ShouldSandbox(ModeAlways) == false {
		t.Error("always mode should sandbox even when runtime disabled")
	}
	if enabled.ShouldSandbox(ModeNever) {
		t.Error("never mode should never sandbox")
	}
	if !enabled.ShouldSandbox(ModeAuto) {
		t.Error("auto mode should defer to Enabled=true")
	}
	if disabled.ShouldSandbox(ModeAuto) {
		t.Error("auto mode should defer to Enabled=false")
	}
}

func TestResolveCwdRejectsEscape(t *testing.T) {
	r := NewRunner(Config{}, "/workspace/root")
	if _, err := r.resolveCwd("../../etc"); err != ErrCwdOutsideWorkspace {
		t.Fatalf("expected ErrCwdOutsideWorkspace, got %v", err)
	}
	if _, err := r.resolveCwd("/etc"); err != ErrCwdOutsideWorkspace {
		t.Fatalf("expected ErrCwdOutsideWorkspace for absolute escape, got %v", err)
	}
}

func TestResolveCwdAllowsNested(t *testing.T) {
	r := NewRunner(Config{}, "/workspace/root")
	got, err := r.resolveCwd("sub/dir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/workspace/root/sub/dir" {
		t.Errorf("resolveCwd = %q", got)
	}
}

func TestBuildArgsIncludesSessionMarkerAndNetworkMode(t *testing.T) {
	r := NewRunner(Config{Enabled: true, Image: "alpine:latest"}, "/workspace/root")
	args := r.buildArgs(RunRequest{Command: "echo hi", Shell: true, SessionID: "sess-1"}, "/workspace/root")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--network none") {
		t.Errorf("expected default network mode none, got %q", joined)
	}
	if !strings.Contains(joined, "MCP_SANDBOX_SESSION=sess-1") {
		t.Errorf("expected session marker, got %q", joined)
	}
	if !strings.Contains(joined, "/bin/sh -c echo hi") {
		t.Errorf("expected shell-wrapped command, got %q", joined)
	}
}

func TestBuildArgsAllowsNetworkingWithMode(t *testing.T) {
	r := NewRunner(Config{Enabled: true, AllowNetworking: true, NetworkMode: "bridge"}, "/workspace/root")
	args := r.buildArgs(RunRequest{Command: "curl", Shell: false}, "/workspace/root")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--network bridge") {
		t.Errorf("expected bridge network mode, got %q", joined)
	}
}

func TestSessionBookkeeping(t *testing.T) {
	r := NewRunner(Config{Enabled: true}, "/workspace")
	r.touchSession("a")
	r.touchSession("a")
	r.touchSession("b")

	sessions := r.ListSessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	var foundA bool
	for _, s := range sessions {
		if s.ID == "a" {
			foundA = true
			if s.RunCount != 2 {
				t.Errorf("session a run count = %d, want 2", s.RunCount)
			}
		}
	}
	if !foundA {
		t.Fatal("expected session 'a' to be tracked")
	}

	if !r.ReleaseSession("a") {
		t.Fatal("expected ReleaseSession to report success")
	}
	if len(r.ListSessions()) != 1 {
		t.Fatalf("expected 1 session after release, got %d", len(r.ListSessions()))
	}
	if r.ReleaseSession("a") {
		t.Fatal("expected second ReleaseSession to report not-found")
	}
}

func TestBoundedBufferTruncatesAndFlagsOverflow(t *testing.T) {
	b := newBoundedBuffer(4)
	n, err := b.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len("hello world") {
		t.Errorf("Write should report the full input length written, got %d", n)
	}
	if b.String() != "hell" {
		t.Errorf("expected truncated content %q, got %q", "hell", b.String())
	}
	if !b.overflowed {
		t.Error("expected overflowed to be set")
	}
}

func TestClampTimeout(t *testing.T) {
	if got := clampTimeout(0); got.Milliseconds() != 15000 {
		t.Errorf("expected default 15s, got %v", got)
	}
	if got := clampTimeout(20 * 60 * 1000); got.Milliseconds() != 15*60*1000 {
		t.Errorf("expected clamp to 15min, got %v", got)
	}
	if got := clampTimeout(-5); got.Milliseconds() != 15000 {
		t.Errorf("expected negative to fall back to default, got %v", got)
	}
}
