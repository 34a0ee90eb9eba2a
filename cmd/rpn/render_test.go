package main

import (
	"bytes"
	"strings"
	"testing"

	"nickandperla.net/rpn/pkg/rpn"
)

func stepOutcome(t *testing.T, expr string) *rpn.Outcome {
	t.Helper()
	rt, err := rpn.New(rpn.WithMemoryStore(), rpn.WithStepMode(true))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer rt.Close()
	out, err := rt.Eval(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func render(out *rpn.Outcome, rc renderConfig) string {
	var buf bytes.Buffer
	r := &renderer{w: &buf, rc: rc}
	r.Render(out)
	return buf.String()
}

func TestRenderPlainSteps(t *testing.T) {
	out := stepOutcome(t, "5 3 +")
	got := render(out, renderConfig{step: true, noColor: true})
	want := "5 3 +\n" +
		"step 1: 5 3 +\n" +
		"5 3 + = 8\n" +
		"8\n"
	if got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderEndStep(t *testing.T) {
	out := stepOutcome(t, "9 5 - 2 *")
	got := render(out, renderConfig{endStep: true, noColor: true})
	want := "9 5 - 2 *\n" +
		"step 1: 9 5 - 2 *\n" +
		"9 5 - = 4\n" +
		"step 1 end: 4 2 *\n" +
		"step 2: 4 2 *\n" +
		"4 2 * = 8\n" +
		"step 2 end: 8\n" +
		"8\n"
	if got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderInfixDetails(t *testing.T) {
	out := stepOutcome(t, "9 5 - 2 *")
	got := render(out, renderConfig{step: true, infix: true, noColor: true})
	if !strings.Contains(got, "9 - 5 = 4\n") {
		t.Errorf("missing infix detail for -, got:\n%s", got)
	}
	if !strings.Contains(got, "4 * 2 = 8\n") {
		t.Errorf("missing infix detail for *, got:\n%s", got)
	}
}

func TestRenderInfixUnary(t *testing.T) {
	out := stepOutcome(t, "420 dnor")
	got := render(out, renderConfig{step: true, infix: true, noColor: true})
	if !strings.Contains(got, "dnor 420 = 60\n") {
		t.Errorf("missing unary infix detail, got:\n%s", got)
	}
}

func TestRenderConditionalNoResult(t *testing.T) {
	out := stepOutcome(t, "0 if{ 5 }")
	got := render(out, renderConfig{endStep: true, noColor: true})
	want := "0 if{ 5 }\n" +
		"step 1: 0 if{ 5 }\n" +
		"0 if{ ... } → branch: NONE →\n" +
		"step 1 end: \n" +
		"\n"
	if got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderColors(t *testing.T) {
	out := stepOutcome(t, "9 5 - 2 *")

	got := render(out, renderConfig{step: true})
	if !strings.Contains(got, ansiYellow) || !strings.Contains(got, ansiRed) {
		t.Errorf("expected yellow redex and red context, got:\n%q", got)
	}

	got = render(out, renderConfig{step: true, mark: true})
	if !strings.Contains(got, ansiMark) {
		t.Errorf("expected background mark, got:\n%q", got)
	}

	got = render(out, renderConfig{step: true, noColor: true})
	if strings.Contains(got, "\x1b[") {
		t.Errorf("nocolor output still has escapes:\n%q", got)
	}
}

func TestParseCtx(t *testing.T) {
	params, sim, err := parseCtx(`{"params": {"p1": 50, "p2": 3, "x": 9}, "simvars": {"A": {"HDG": 270}}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params) != 2 || params[1] != 50 || params[2] != 3 {
		t.Fatalf("unexpected params: %v", params)
	}
	if got := sim.Get("A", "HDG"); got != 270 {
		t.Fatalf("unexpected simvars: %v", sim)
	}

	if _, _, err := parseCtx("{not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
