package scanner

import (
	"testing"

	"nickandperla.net/rpn/internal/token"
)

func texts(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestScanSplitting(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"5 3 +", []string{"5", "3", "+"}},
		{"  330   90 + dnor ", []string{"330", "90", "+", "dnor"}},
		{"1 if{ 11 } else{ 22 }", []string{"1", "if{", "11", "}", "else{", "22", "}"}},
		{"1 if{ 11 }else{ 22 }", []string{"1", "if{", "11", "}", "else{", "22", "}"}},
		{"if{}else{}", []string{"if{", "}", "else{", "}"}},
		{"if{1}", []string{"if{", "1", "}"}},
		{"5}", []string{"5", "}"}},
		{"a{b", []string{"a", "{", "b"}},
		{") 1", []string{")", "1"}},
		{"(A:FOO BAR, degrees) 10 +", []string{"(A:FOO BAR, degrees)", "10", "+"}},
		{"(A:(X)) 1 +", []string{"(A:(X))", "1", "+"}},
		{"(A:OPEN 5", []string{"(A:OPEN 5"}},
		{"", nil},
		{"   ", nil},
	}
	for _, c := range cases {
		got := texts(Scan(c.src))
		if len(got) != len(c.want) {
			t.Errorf("Scan(%q) = %v, want %v", c.src, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("Scan(%q)[%d] = %q, want %q", c.src, i, got[i], c.want[i])
			}
		}
	}
}

func TestScanClassification(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
	}{
		{"42", token.Number},
		{"-7", token.Number},
		{"+3", token.Number},
		{"3,5", token.Number},
		{"3.5", token.Number},
		{"p2", token.Param},
		{"s0", token.Store},
		{"s12", token.Store},
		{"l9", token.Load},
		{"sp3", token.SessionStore},
		{"lp7", token.SessionLoad},
		{"r", token.Recall},
		{"r2", token.Recall},
		{"r,2", token.Recall},
		{"(A:PLANE HEADING)", token.SimRead},
		{"(>H:AS1000_TUNE)", token.SimWrite},
		{"+", token.Operator},
		{"and", token.Operator},
		{"<>", token.Operator},
		{"clamp", token.Operator},
		{",", token.NoOp},
		{"Number", token.NoOp},
		{"Boolean", token.NoOp},
		{"add90", token.Name},
		{"(A:OPEN", token.Name},
		{"3.5.1", token.Name},
		{"1e5", token.Name},
	}
	for _, c := range cases {
		toks := Scan(c.src)
		if len(toks) != 1 {
			t.Fatalf("Scan(%q) = %d tokens, want 1", c.src, len(toks))
		}
		if toks[0].Kind != c.kind {
			t.Errorf("Scan(%q).Kind = %v, want %v", c.src, toks[0].Kind, c.kind)
		}
	}
}

func TestScanRecallIndexes(t *testing.T) {
	cases := []struct {
		src   string
		index int
		elem  int
	}{
		{"r", 1, -1},
		{"r2", 2, -1},
		{"r,2", 1, 2},
		{"r3,1", 3, 1},
		{"r0", 0, -1},
		{"r2,0", 2, 0},
	}
	for _, c := range cases {
		tok := Scan(c.src)[0]
		if tok.Kind != token.Recall {
			t.Fatalf("Scan(%q).Kind = %v, want RECALL", c.src, tok.Kind)
		}
		if tok.Index != c.index || tok.Elem != c.elem {
			t.Errorf("Scan(%q) = (%d,%d), want (%d,%d)", c.src, tok.Index, tok.Elem, c.index, c.elem)
		}
	}
}

func TestScanSimVarFields(t *testing.T) {
	tok := Scan("(>H:AS1000_PFD_SOFTKEYS_1, number)")[0]
	if tok.Kind != token.SimWrite {
		t.Fatalf("Kind = %v, want SIM_WRITE", tok.Kind)
	}
	if tok.Prefix != "H" {
		t.Errorf("Prefix = %q, want %q", tok.Prefix, "H")
	}
	if tok.Key != "AS1000_PFD_SOFTKEYS_1, number" {
		t.Errorf("Key = %q, want %q", tok.Key, "AS1000_PFD_SOFTKEYS_1, number")
	}

	// prefix must directly follow "(", so this one stays opaque
	tok = Scan("( A: SPACED KEY )")[0]
	if tok.Kind != token.Name {
		t.Errorf("Kind = %v, want NAME for spaced prefix", tok.Kind)
	}

	tok = Scan("(A: TRIMMED )")[0]
	if tok.Kind != token.SimRead {
		t.Fatalf("Kind = %v, want SIM_READ", tok.Kind)
	}
	if tok.Key != "TRIMMED" {
		t.Errorf("Key = %q, want %q", tok.Key, "TRIMMED")
	}
}

func TestScanParamIndex(t *testing.T) {
	tok := Scan("p12")[0]
	if tok.Kind != token.Param || tok.Index != 12 {
		t.Errorf("p12 = (%v,%d), want (PARAM,12)", tok.Kind, tok.Index)
	}
}
