package eval

import (
	"errors"
	"math"
	"strings"
	"testing"

	"nickandperla.net/rpn/internal/state"
)

func evalStack(t *testing.T, src string, opts ...Option) []float64 {
	t.Helper()
	res, err := New(opts...).EvalString(src)
	if err != nil {
		t.Fatalf("EvalString(%q): unexpected error: %v", src, err)
	}
	return res.Stack
}

func sameStack(got, want []float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want []float64
	}{
		{"5 3 +", []float64{8}},
		{"9 5 -", []float64{4}},
		{"6 7 *", []float64{42}},
		{"1 2 /", []float64{0.5}},
		{"7 3 %", []float64{1}},
		{"2 10 ^", []float64{1024}},
		{"2 3 pow", []float64{8}},
		{"9 sqrt2", []float64{3}},
		{"27 3 sqrt", []float64{3}},
		{"3 pow2", []float64{9}},
		{"-4 abs", []float64{4}},
		{"2.5 floor", []float64{2}},
		{"2.5 ceil", []float64{3}},
		{"1,5 2 *", []float64{3}},
		{"330 90 + dnor", []float64{60}},
		{"-30 dnor", []float64{330}},
		{"5 3 min", []float64{3}},
		{"5 3 max", []float64{5}},
		{"1 10 5 clamp", []float64{5}},
		{"1 10 12 clamp", []float64{10}},
		{"1 10 -3 clamp", []float64{1}},
		{"0 sin", []float64{0}},
		{"0 cos", []float64{1}},
		{"1 log", []float64{0}},
		{"0 exp", []float64{1}},
		{"1 2 3", []float64{1, 2, 3}},
		{"", nil},
	}
	for _, tt := range tests {
		got := evalStack(t, tt.src)
		if !sameStack(got, tt.want) {
			t.Errorf("EvalString(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1 1 ==", 1},
		{"1 2 =", 0},
		{"1 2 !=", 1},
		{"2 2 <>", 0},
		{"3 2 >", 1},
		{"2 3 <", 1},
		{"2 2 >=", 1},
		{"3 2 <=", 0},
		{"1 2 and", 1},
		{"0 2 &&", 0},
		{"0 2 or", 1},
		{"0 0 ||", 0},
		{"0 not", 1},
		{"5 !", 0},
	}
	for _, tt := range tests {
		got := evalStack(t, tt.src)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("EvalString(%q) = %v, want [%v]", tt.src, got, tt.want)
		}
	}
}

func TestFloatingPointSemantics(t *testing.T) {
	got := evalStack(t, "1 0 /")
	if !math.IsInf(got[0], 1) {
		t.Errorf("1 0 / = %v, want +Inf", got[0])
	}
	got = evalStack(t, "-1 0 /")
	if !math.IsInf(got[0], -1) {
		t.Errorf("-1 0 / = %v, want -Inf", got[0])
	}
	got = evalStack(t, "0 0 /")
	if !math.IsNaN(got[0]) {
		t.Errorf("0 0 / = %v, want NaN", got[0])
	}
	got = evalStack(t, "-1 log")
	if !math.IsNaN(got[0]) {
		t.Errorf("-1 log = %v, want NaN", got[0])
	}
	// modulo keeps the dividend's sign
	got = evalStack(t, "-7 3 %")
	if got[0] != -1 {
		t.Errorf("-7 3 %% = %v, want -1", got[0])
	}
	// ties round to even
	got = evalStack(t, "2.5 round")
	if got[0] != 2 {
		t.Errorf("2.5 round = %v, want 2", got[0])
	}
	got = evalStack(t, "3.5 round")
	if got[0] != 4 {
		t.Errorf("3.5 round = %v, want 4", got[0])
	}
}

func TestPersistentRegisters(t *testing.T) {
	var regs state.Registers
	got := evalStack(t, "5 s0 l0", WithRegisters(&regs))
	if !sameStack(got, []float64{5}) {
		t.Fatalf("5 s0 l0 = %v, want [5]", got)
	}
	if regs[0] != 5 {
		t.Errorf("register 0 = %v, want 5", regs[0])
	}

	// loads of never-stored indexes read the bank's initial value
	got = evalStack(t, "l3", WithRegisters(&regs))
	if !sameStack(got, []float64{0}) {
		t.Errorf("l3 = %v, want [0]", got)
	}

	for _, src := range []string{"1 s12", "l12", "1 sp12", "lp12"} {
		_, err := New().EvalString(src)
		if !errors.Is(err, ErrRegisterIndex) {
			t.Errorf("EvalString(%q) error = %v, want ErrRegisterIndex", src, err)
		}
	}

	_, err := New().EvalString("s0")
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("s0 on empty stack error = %v, want ErrStackUnderflow", err)
	}
}

func TestSessionRegisters(t *testing.T) {
	got := evalStack(t, "5 sp0 3 + lp0")
	if !sameStack(got, []float64{8, 5}) {
		t.Errorf("5 sp0 3 + lp0 = %v, want [8 5]", got)
	}

	// session store copies without popping; empty stack copies 0
	res, err := New().EvalString("sp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stack) != 0 || res.Session[4] != 0 {
		t.Errorf("sp4 = %v session=%v, want empty stack and 0", res.Stack, res.Session[4])
	}

	res, err = New().EvalString("7 sp2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Session[2] != 7 || !sameStack(res.Stack, []float64{7}) {
		t.Errorf("7 sp2 = %v session=%v, want [7] and 7", res.Stack, res.Session[2])
	}

	// session banks do not survive across evaluations
	e := New()
	if _, err := e.EvalString("9 sp1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err = e.EvalString("lp1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameStack(res.Stack, []float64{0}) {
		t.Errorf("lp1 in fresh session = %v, want [0]", res.Stack)
	}
}

func TestExternalVariables(t *testing.T) {
	sim := state.SimVars{"A": {"HEADING INDICATOR": 270}}
	got := evalStack(t, "(A:HEADING INDICATOR) 45 +", WithSimVars(sim))
	if !sameStack(got, []float64{315}) {
		t.Errorf("read = %v, want [315]", got)
	}

	e := New(WithSimVars(sim))
	res, err := e.EvalString("90 (>A:HEADING INDICATOR)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stack) != 0 {
		t.Errorf("write left %v on the stack, want empty", res.Stack)
	}
	if !res.SimDirty {
		t.Error("write did not mark the table dirty")
	}
	if sim.Get("A", "HEADING INDICATOR") != 90 {
		t.Errorf("table = %v, want 90", sim.Get("A", "HEADING INDICATOR"))
	}

	res, err = e.EvalString("(A:HEADING INDICATOR)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SimDirty {
		t.Error("pure read marked the table dirty")
	}

	// unknown prefix/key reads as 0; unit suffixes are part of the key
	got = evalStack(t, "(L:UNSET) (A:ALTITUDE, feet) +", WithSimVars(sim))
	if !sameStack(got, []float64{0}) {
		t.Errorf("defaults = %v, want [0]", got)
	}

	_, err = New().EvalString("(>A:X)")
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("write on empty stack error = %v, want ErrStackUnderflow", err)
	}
}

func TestRecall(t *testing.T) {
	hist := state.History{{8}, {1, 2, 3}}
	tests := []struct {
		src  string
		want []float64
	}{
		{"r", []float64{8}},
		{"r1", []float64{8}},
		{"r2", []float64{1, 2, 3}},
		{"r2,2", []float64{2}},
		{"r1 r2,3 +", []float64{11}},
	}
	for _, tt := range tests {
		got := evalStack(t, tt.src, WithHistory(hist))
		if !sameStack(got, tt.want) {
			t.Errorf("EvalString(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}

	for _, src := range []string{"r3", "r0", "r2,9", "r2,0", "r1,2"} {
		_, err := New(WithHistory(hist)).EvalString(src)
		if !errors.Is(err, ErrMissingHistory) {
			t.Errorf("EvalString(%q) error = %v, want ErrMissingHistory", src, err)
		}
	}

	// sub-evaluations run without history
	_, err := New(WithHistory(hist)).EvalString("1 if{ r1 }")
	if !errors.Is(err, ErrMissingHistory) {
		t.Errorf("recall inside branch error = %v, want ErrMissingHistory", err)
	}
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		src  string
		want []float64
	}{
		{"1 if{ 11 } else{ 22 }", []float64{11}},
		{"0 if{ 11 } else{ 22 }", []float64{22}},
		{"1 if{ 11 }", []float64{11}},
		{"0 if{ 11 }", nil},
		{"1 if{11}else{22}", []float64{11}},
		{"-1 if{ 11 } else{ 22 }", []float64{11}},
		{"1 if{ 0 if{ 1 } else{ 2 } }", []float64{2}},
		{"1 if{ 2 3 }", []float64{2, 3}},
		{"1 if{ 2 3 + }", []float64{5}},
		{"else{ 9 }", nil},
		{"1 if{ } else{ 9 }", nil},
	}
	for _, tt := range tests {
		got := evalStack(t, tt.src)
		if !sameStack(got, tt.want) {
			t.Errorf("EvalString(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestConditionalSideEffects(t *testing.T) {
	var regs state.Registers
	evalStack(t, "1 if{ 5 s1 }", WithRegisters(&regs))
	if regs[1] != 5 {
		t.Errorf("register 1 = %v, want 5", regs[1])
	}

	// only the taken branch's effects occur
	regs = state.Registers{}
	evalStack(t, "0 if{ 5 s1 } else{ 7 s2 }", WithRegisters(&regs))
	if regs[1] != 0 || regs[2] != 7 {
		t.Errorf("registers = %v/%v, want 0/7", regs[1], regs[2])
	}

	// branches run on an isolated stack
	_, err := New().EvalString("5 1 if{ + }")
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("branch pop of caller value error = %v, want ErrStackUnderflow", err)
	}
}

func TestConditionalErrors(t *testing.T) {
	_, err := New().EvalString("1 if{ 2")
	if !errors.Is(err, ErrUnmatchedBlock) {
		t.Errorf("unterminated block error = %v, want ErrUnmatchedBlock", err)
	}
	_, err = New().EvalString("if{ 1 }")
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("missing condition error = %v, want ErrStackUnderflow", err)
	}
	_, err = New().EvalString("5 }")
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("stray close error = %v, want ErrUnknownToken", err)
	}
}

func TestFunctions(t *testing.T) {
	funcs := state.Functions{
		{Name: "add90", Params: 1, Body: "p1 90 +"},
		{Name: "sub", Params: 2, Body: "p1 p2 -"},
		{Name: "twice", Params: 1, Body: "p1 1 + p1 2 +"},
	}

	got := evalStack(t, "50 add90", WithFunctions(funcs))
	if !sameStack(got, []float64{140}) {
		t.Errorf("50 add90 = %v, want [140]", got)
	}

	// the first popped value binds the last parameter
	got = evalStack(t, "10 3 sub", WithFunctions(funcs))
	if !sameStack(got, []float64{7}) {
		t.Errorf("10 3 sub = %v, want [7]", got)
	}

	// every value the body leaves is pushed
	got = evalStack(t, "5 twice", WithFunctions(funcs))
	if !sameStack(got, []float64{6, 7}) {
		t.Errorf("5 twice = %v, want [6 7]", got)
	}

	_, err := New(WithFunctions(funcs)).EvalString("add90")
	if !errors.Is(err, ErrFunctionArity) {
		t.Errorf("empty-stack call error = %v, want ErrFunctionArity", err)
	}

	_, err = New().EvalString("add90")
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("undefined name error = %v, want ErrUnknownToken", err)
	}
}

func TestFunctionShadowsOperator(t *testing.T) {
	funcs := state.Functions{{Name: "max", Params: 2, Body: "p1"}}
	got := evalStack(t, "1 2 max", WithFunctions(funcs))
	if !sameStack(got, []float64{1}) {
		t.Errorf("shadowed max = %v, want [1]", got)
	}
}

func TestFunctionEnvironment(t *testing.T) {
	var regs state.Registers
	funcs := state.Functions{
		{Name: "keep", Params: 1, Body: "p1 s3"},
		{Name: "peek", Params: 0, Body: "lp0"},
	}

	// persistent registers are shared with the body
	got := evalStack(t, "9 keep", WithRegisters(&regs), WithFunctions(funcs))
	if len(got) != 0 || regs[3] != 9 {
		t.Errorf("9 keep = %v regs[3]=%v, want empty stack and 9", got, regs[3])
	}

	// session registers are not
	got = evalStack(t, "5 sp0 peek", WithFunctions(funcs))
	if !sameStack(got, []float64{5, 0}) {
		t.Errorf("5 sp0 peek = %v, want [5 0]", got)
	}
}

func TestFunctionRecursionDepth(t *testing.T) {
	funcs := state.Functions{{Name: "loop", Params: 0, Body: "loop"}}
	_, err := New(WithFunctions(funcs)).EvalString("loop")
	if !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("recursive call error = %v, want ErrDepthExceeded", err)
	}
}

func TestFunctionDuplicateNames(t *testing.T) {
	funcs := state.Functions{
		{Name: "f", Params: 0, Body: "1"},
		{Name: "f", Params: 0, Body: "2"},
	}
	got := evalStack(t, "f", WithFunctions(funcs))
	if !sameStack(got, []float64{2}) {
		t.Errorf("duplicate name = %v, want the later definition [2]", got)
	}
}

func TestFunctionParamOutOfRange(t *testing.T) {
	funcs := state.Functions{{Name: "f", Params: 1, Body: "p2"}}
	got := evalStack(t, "5 f", WithFunctions(funcs))
	if !sameStack(got, []float64{0}) {
		t.Errorf("unbound body ordinal = %v, want [0]", got)
	}
}

func TestParams(t *testing.T) {
	params := state.Params{1: 5, 2: 3}
	got := evalStack(t, "p1 p2 +", WithParams(params))
	if !sameStack(got, []float64{8}) {
		t.Errorf("p1 p2 + = %v, want [8]", got)
	}

	// unbound parameters read as 0
	got = evalStack(t, "p7", WithParams(params))
	if !sameStack(got, []float64{0}) {
		t.Errorf("p7 = %v, want [0]", got)
	}
}

func TestNoOpTokens(t *testing.T) {
	got := evalStack(t, "5 Number 3 + Boolean ,")
	if !sameStack(got, []float64{8}) {
		t.Errorf("no-op tokens = %v, want [8]", got)
	}
}

func TestMalformedNumber(t *testing.T) {
	_, err := New().EvalString(strings.Repeat("9", 400))
	if !errors.Is(err, ErrMalformedNumber) {
		t.Errorf("overflowing literal error = %v, want ErrMalformedNumber", err)
	}
}

func TestUnknownToken(t *testing.T) {
	for _, src := range []string{"bogus", "5 {", "5 )"} {
		_, err := New().EvalString(src)
		if !errors.Is(err, ErrUnknownToken) {
			t.Errorf("EvalString(%q) error = %v, want ErrUnknownToken", src, err)
		}
	}
}

func TestSideEffectsBeforeErrorSurvive(t *testing.T) {
	var regs state.Registers
	_, err := New(WithRegisters(&regs)).EvalString("5 s0 bogus")
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("error = %v, want ErrUnknownToken", err)
	}
	if regs[0] != 5 {
		t.Errorf("register 0 = %v, want the committed 5", regs[0])
	}
}
