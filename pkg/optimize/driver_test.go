package optimize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/raymyers/tacc/pkg/config"
	"github.com/raymyers/tacc/pkg/tac"
)

func identityScenario() []tac.Instruction {
	return []tac.Instruction{
		tac.Label("main"),
		tac.Binary(tac.OpAdd, "t1", "x", "0"),
		tac.Binary(tac.OpMul, "y", "t1", "1"),
		tac.Return("y"),
	}
}

func TestFixpointIdentityScenario(t *testing.T) {
	d := NewDriver(nil)
	got := d.Run(O1, identityScenario())

	want := []tac.Instruction{tac.Label("main"), tac.Return("x")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if d.Rounds != 2 {
		t.Errorf("Rounds = %d, want 2", d.Rounds)
	}
}

func TestFixpointFoldsThroughPropagation(t *testing.T) {
	code := []tac.Instruction{
		tac.Copy("a", "2"),
		tac.Binary(tac.OpMul, "b", "a", "3"),
		tac.Return("b"),
	}

	got := NewDriver(nil).Run(O1, code)
	want := []tac.Instruction{tac.Return("6")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFixpointRespectsDisabledPass(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatDCE, false)

	got := NewDriver(cfg).Run(O1, identityScenario())
	want := []tac.Instruction{
		tac.Label("main"),
		tac.Copy("t1", "x"),
		tac.Copy("y", "x"),
		tac.Return("x"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFixpointRoundLimit(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MaxRounds = 1

	d := NewDriver(cfg)
	got := d.Run(O1, identityScenario())
	if d.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", d.Rounds)
	}
	if len(got) != 2 {
		t.Errorf("got %d instructions, want 2:\n%s", len(got), tac.Format(got))
	}
}

func TestFixpointIsStable(t *testing.T) {
	d := NewDriver(nil)
	once := d.Run(O1, identityScenario())
	again := d.Run(O1, once)
	if !tac.Equal(once, again) {
		t.Errorf("optimizing an optimized list changed it:\n%s\n---\n%s", tac.Format(once), tac.Format(again))
	}
	if d.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", d.Rounds)
	}
}

func TestO0LeavesCodeAlone(t *testing.T) {
	code := identityScenario()
	got := NewDriver(nil).Run(O0, code)
	if !tac.Equal(code, got) {
		t.Errorf("O0 changed the list:\n%s", tac.Format(got))
	}
}

func TestO2(t *testing.T) {
	code := []tac.Instruction{
		tac.Label("main"),
		tac.Binary(tac.OpAdd, "t1", "a", "b"),
		tac.Copy("x", "t1"),
		tac.Goto(".L1"),
		tac.Label(".L1"),
		tac.Goto(".L2"),
		tac.Label(".L2"),
		tac.Return("x"),
	}

	got := NewDriver(nil).Run(O2, code)
	want := []tac.Instruction{
		tac.Label("main"),
		tac.Binary(tac.OpAdd, "x", "a", "b"),
		tac.Goto(".L2"),
		tac.Goto(".L2"),
		tac.Label(".L2"),
		tac.Return("x"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFingerprint(t *testing.T) {
	a := identityScenario()
	b := identityScenario()
	if fingerprint(a) != fingerprint(b) {
		t.Error("equal lists should hash equally")
	}
	b[3] = tac.Return("t1")
	if fingerprint(a) == fingerprint(b) {
		t.Error("different lists should hash differently")
	}
}
