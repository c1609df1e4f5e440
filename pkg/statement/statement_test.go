package statement

import (
	"reflect"
	"testing"

	"vantage/pkg/refs"
)

func knownRefs(names ...string) map[string]refs.Reference {
	m := make(map[string]refs.Reference, len(names))
	for _, n := range names {
		m[n] = refs.Reference{Name: n, Definition: refs.Definition{TagExpression: n}}
	}
	return m
}

// =============================================================================
// Scaffold matching
// =============================================================================

func TestParseArchetypes(t *testing.T) {
	known := knownRefs("a", "b", "svc", "layer")

	cases := []struct {
		text string
		want Expr
		mod  Modifier
	}{
		{"there must be $$$svc$$$", Existence{Ref: "svc"}, ModifierMust},
		{"$$$svc$$$ must exist", Existence{Ref: "svc"}, ModifierMust},
		{"$$$a$$$ must be in $$$b$$$", Containment{Subject: "a", Container: "b"}, ModifierMust},
		{"every $$$a$$$ must be contained in $$$b$$$", Containment{Subject: "a", Container: "b"}, ModifierMust},
		{"$$$b$$$ must contain $$$a$$$", Containment{Subject: "a", Container: "b"}, ModifierMust},
		{"$$$a$$$ must not depend on $$$b$$$", Exclusion{Subject: "a", Forbidden: "b"}, ModifierMust},
		{"$$$a$$$ should not depend transitively on $$$b$$$", Exclusion{Subject: "a", Forbidden: "b", Transitive: true}, ModifierShould},
		{"there must be exactly 3 $$$svc$$$", Cardinality{Ref: "svc", Op: OpEq, Value: 3}, ModifierMust},
		{"there must be not exactly 3 $$$svc$$$", Cardinality{Ref: "svc", Op: OpNe, Value: 3}, ModifierMust},
		{"there must be at least 2 $$$svc$$$", Cardinality{Ref: "svc", Op: OpGe, Value: 2}, ModifierMust},
		{"there must be at most 5 $$$svc$$$", Cardinality{Ref: "svc", Op: OpLe, Value: 5}, ModifierMust},
		{"there should be more than 1 $$$svc$$$", Cardinality{Ref: "svc", Op: OpGt, Value: 1}, ModifierShould},
		{"there must be fewer than 10 $$$svc$$$", Cardinality{Ref: "svc", Op: OpLt, Value: 10}, ModifierMust},
		{"there must be less than 10 $$$svc$$$", Cardinality{Ref: "svc", Op: OpLt, Value: 10}, ModifierMust},
		{"all components must have an owner on $$$layer$$$", Coverage{Subject: CoverageAll, Layer: "layer"}, ModifierMust},
		{"every component in the system must be covered by $$$layer$$$", Coverage{Subject: CoverageAll, Layer: "layer"}, ModifierMust},
		{"all $$$svc$$$ must belong to a group on $$$layer$$$", Coverage{Subject: "svc", Layer: "layer"}, ModifierMust},
		{"$$$a$$$ must correspond with $$$b$$$", Correspondence{A: "a", B: "b"}, ModifierMust},
		{"$$$a$$$ corresponds with $$$b$$$", Correspondence{A: "a", B: "b"}, ModifierMust},
		{"$$$a$$$ should match to $$$b$$$", Correspondence{A: "a", B: "b"}, ModifierShould},
		{"$$$a$$$ must refine $$$b$$$", Refinement{Fine: "a", Coarse: "b"}, ModifierMust},
		{"$$$a$$$ refines $$$b$$$", Refinement{Fine: "a", Coarse: "b"}, ModifierMust},
		{"$$$a$$$ must be a refinement of $$$b$$$", Refinement{Fine: "a", Coarse: "b"}, ModifierMust},
		{"$$$a$$$ nests within $$$b$$$", Refinement{Fine: "a", Coarse: "b"}, ModifierMust},
	}

	for _, tc := range cases {
		got := Parse(tc.text, known)
		if got.Classification != ClassFormal {
			t.Errorf("%q: classification = %s (%s), want formal", tc.text, got.Classification, got.SyntaxErr)
			continue
		}
		if !reflect.DeepEqual(got.Expr, tc.want) {
			t.Errorf("%q: expr = %#v, want %#v", tc.text, got.Expr, tc.want)
		}
		if got.Modifier != tc.mod {
			t.Errorf("%q: modifier = %s, want %s", tc.text, got.Modifier, tc.mod)
		}
	}
}

func TestParseCaseInsensitiveScaffold(t *testing.T) {
	got := Parse("There MUST Be $$$svc$$$", knownRefs("svc"))
	if got.Classification != ClassFormal || got.Type != TypeExistence {
		t.Errorf("got %s/%s, want formal existence", got.Classification, got.Type)
	}
}

// =============================================================================
// Classification pipeline
// =============================================================================

func TestParseInformal(t *testing.T) {
	got := Parse("keep the payment path fast", knownRefs())
	if got.Classification != ClassInformal {
		t.Errorf("classification = %s, want informal", got.Classification)
	}
	if got.Expr != nil {
		t.Errorf("informal statement carries expression %#v", got.Expr)
	}
}

func TestParseSemiFormal(t *testing.T) {
	got := Parse("$$$ghost$$$ must be in $$$b$$$", knownRefs("b"))
	if got.Classification != ClassSemiFormal {
		t.Fatalf("classification = %s, want semi-formal", got.Classification)
	}
	if want := []string{"ghost"}; !reflect.DeepEqual(got.UnresolvedNames, want) {
		t.Errorf("UnresolvedNames = %v, want %v", got.UnresolvedNames, want)
	}
	// the partial expression is kept so the UI can show what was understood
	if got.Type != TypeContainment {
		t.Errorf("Type = %s, want containment", got.Type)
	}
}

func TestParseBadNumericSlotIsInformal(t *testing.T) {
	got := Parse("there must be exactly three $$$svc$$$", knownRefs("svc"))
	if got.Classification != ClassInformal {
		t.Fatalf("classification = %s, want informal", got.Classification)
	}
	if got.SyntaxErr == "" {
		t.Error("expected a recorded syntax error")
	}
}

func TestParseBrokenReferenceIsInvalid(t *testing.T) {
	references := map[string]refs.Reference{
		"broken": {Name: "broken", Definition: refs.Definition{TagExpression: "payment AND"}},
	}
	got := Parse("there must be $$$broken$$$", references)
	if got.Classification != ClassInvalid {
		t.Fatalf("classification = %s, want invalid", got.Classification)
	}
}

func TestParseMalformedSpanIsInformal(t *testing.T) {
	got := Parse("there must be $$$oops", knownRefs())
	if got.Classification != ClassInformal || got.SyntaxErr == "" {
		t.Errorf("got %s (%q), want informal with syntax error", got.Classification, got.SyntaxErr)
	}
}

// =============================================================================
// Round trip
// =============================================================================

func TestRenderRoundTrip(t *testing.T) {
	known := knownRefs("a", "b", "svc", "layer")
	exprs := []Expr{
		Existence{Ref: "svc"},
		Containment{Subject: "a", Container: "b"},
		Exclusion{Subject: "a", Forbidden: "b"},
		Exclusion{Subject: "a", Forbidden: "b", Transitive: true},
		Cardinality{Ref: "svc", Op: OpGe, Value: 4},
		Coverage{Subject: CoverageAll, Layer: "layer"},
		Coverage{Subject: "svc", Layer: "layer"},
		Correspondence{A: "a", B: "b"},
		Refinement{Fine: "a", Coarse: "b"},
	}

	for _, mod := range []Modifier{ModifierMust, ModifierShould} {
		for _, expr := range exprs {
			text := Render(expr, mod)
			got := Parse(text, known)
			if got.Classification != ClassFormal {
				t.Errorf("%q: classification = %s, want formal", text, got.Classification)
				continue
			}
			if got.Expr.Type() != expr.Type() {
				t.Errorf("%q: type = %s, want %s", text, got.Expr.Type(), expr.Type())
			}
			if !reflect.DeepEqual(got.Expr.ReferenceNames(), expr.ReferenceNames()) {
				t.Errorf("%q: names = %v, want %v", text, got.Expr.ReferenceNames(), expr.ReferenceNames())
			}
			if got.Modifier != mod {
				t.Errorf("%q: modifier = %s, want %s", text, got.Modifier, mod)
			}
		}
	}
}

func TestRenderCardinalityOpRoundTrip(t *testing.T) {
	known := knownRefs("svc")
	for _, op := range []CardinalityOp{OpEq, OpNe, OpGe, OpLe, OpGt, OpLt} {
		expr := Cardinality{Ref: "svc", Op: op, Value: 2}
		text := Render(expr, ModifierMust)
		got := Parse(text, known)
		if got.Classification != ClassFormal {
			t.Errorf("%q: classification = %s, want formal", text, got.Classification)
			continue
		}
		if !reflect.DeepEqual(got.Expr, expr) {
			t.Errorf("%q: expr = %#v, want %#v", text, got.Expr, expr)
		}
	}
}

// =============================================================================
// Statements
// =============================================================================

func TestNewStatementAssignsID(t *testing.T) {
	known := knownRefs("svc")
	a := New("there must be $$$svc$$$", known)
	b := New("there must be $$$svc$$$", known)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs not unique: %q vs %q", a.ID, b.ID)
	}
	if !a.IsFormal() {
		t.Error("expected a formal statement")
	}
}

func TestReclassifyAfterReferenceRegistered(t *testing.T) {
	s := New("there must be $$$svc$$$", knownRefs())
	if s.Classification != ClassSemiFormal {
		t.Fatalf("classification = %s, want semi-formal", s.Classification)
	}
	s.Reclassify(knownRefs("svc"))
	if !s.IsFormal() {
		t.Errorf("classification = %s after registering, want formal", s.Classification)
	}
}

func TestModifierSeverity(t *testing.T) {
	if ModifierMust.Severity() != SeverityError {
		t.Error("must should map to error severity")
	}
	if ModifierShould.Severity() != SeverityWarning {
		t.Error("should should map to warning severity")
	}
}
