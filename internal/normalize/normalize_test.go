package normalize

import (
	"strings"
	"testing"
)

var adversarial = []string{
	"",
	" ",
	".",
	"\"",
	"'",
	"\"\"",
	"''",
	". . .",
	"....................",
	"a....................b",
	"Exam shows no acute cardiopulmonary process....   ",
	`He said "no effusion". Heart normal.`,
	`'Lungs clear. No effusion.'`,
	`"already quoted"`,
	`"unbalanced`,
	`a"b"c`,
	"Normal chest.\n.\nNo acute disease",
	"Size 1.5cm nodule",
	"Heart,lungs normal",
	"and/and/or",
	"Effusion/consolidation/atelectasis",
	"\n\n\t  \n",
	"abc , . def",
	"abc,.",
	". leading period",
	"NO FINDING\r\nSecond line",
	"café  nodule.",
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `"."`},
		{"only periods", "....................", `"."`},
		{"trailing dots and spaces", "Exam shows no acute cardiopulmonary process....   ", `"exam shows no acute cardiopulmonary process."`},
		{"embedded quotes escaped", `He said "no effusion". Heart normal.`, `"he said \"no effusion\"."`},
		{"single quoted kept", `'Lungs clear. No effusion.'`, `'lungs clear.'`},
		{"and/or", "Heart size normal and/or stable. Lungs clear", `"heart size normal or stable."`},
		{"letter slash", "Pleural effusion/consolidation", `"pleural effusion or consolidation."`},
		{"newline period", "Normal chest.\n.\nNo acute disease", `"normal chest."`},
		{"whitespace collapsed", "  Lungs   are\tclear  ", `"lungs are clear."`},
		{"comma spacing", "Heart,lungs normal", `"heart, lungs normal."`},
		{"leading period", ". leading period", `"leading period."`},
		{"first sentence only", "No pneumothorax. Small left effusion.", `"no pneumothorax."`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range adversarial {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_QuotedAndTerminated(t *testing.T) {
	for _, in := range adversarial {
		out := Normalize(in)
		if len(out) < 3 {
			t.Errorf("Normalize(%q) = %q, too short", in, out)
			continue
		}
		q := out[0]
		if (q != '"' && q != '\'') || out[len(out)-1] != q {
			t.Errorf("Normalize(%q) = %q, not wrapped", in, out)
		}
		if out[len(out)-2] != '.' || strings.HasSuffix(out[:len(out)-1], "..") {
			t.Errorf("Normalize(%q) = %q, not terminated by a single period", in, out)
		}
	}
}

func TestFragments_NoBlankPieces(t *testing.T) {
	for _, in := range adversarial {
		for _, s := range []string{in, Clean(in), Normalize(in)} {
			for i, f := range Fragments(s) {
				if strings.TrimSpace(f) == "" {
					t.Errorf("Fragments(%q)[%d] is blank", s, i)
				}
			}
		}
	}
}

func TestFragments_Split(t *testing.T) {
	got := Fragments("a. b.  c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != " c" {
		t.Errorf("Fragments = %q", got)
	}
	if got := Fragments("1.5 cm"); len(got) != 1 {
		t.Errorf("period not followed by whitespace should not split: %q", got)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A/B", "a or b"},
		{"1/2", "1/2"},
		{"and/or", "or"},
		{"x..y", "x. y"},
		{"a . . b", "a . b"},
		{"one,two", "one, two"},
		{"  multiple \n\n spaces ", "multiple spaces"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStructure_PreservesQuoteChar(t *testing.T) {
	if got := Structure(`'abc'`); got != `'abc.'` {
		t.Errorf("Structure = %q", got)
	}
	if got := Structure(`x"y`); got != `"x\"y."` {
		t.Errorf("Structure = %q", got)
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, s := range adversarial {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q -> %q", s, once, twice)
		}
	})
}
