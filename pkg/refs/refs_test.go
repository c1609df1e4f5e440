package refs

import (
	"reflect"
	"slices"
	"testing"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
)

func testContext(t *testing.T, references ...Reference) Context {
	t.Helper()
	s := graph.Snapshot{
		Components: []graph.Component{
			{Key: "billing", Tags: []string{"payment", "api"}},
			{Key: "checkout", Tags: []string{"payment"}},
			{Key: "search", Tags: []string{"api"}},
			{Key: "legacy", Tags: []string{"deprecated"}},
		},
		Layers: []graph.Layer{
			{Key: "domain", Groups: []graph.Group{
				{Key: "payments", Members: []string{"billing", "checkout"}},
			}},
			{Key: "domain-sub", Parent: "domain", Groups: []graph.Group{
				{Key: "search-grp", Members: []string{"search"}},
			}},
		},
	}
	g, err := graph.New(s)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	return NewContext(g, references)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// =============================================================================
// Tag expressions
// =============================================================================

func TestParseTagExprPrecedence(t *testing.T) {
	// NOT binds tighter than AND, AND tighter than OR
	expr, err := ParseTagExpr("a OR b AND NOT c")
	if err != nil {
		t.Fatalf("ParseTagExpr: %v", err)
	}
	if got, want := expr.String(), "a OR b AND NOT c"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}

	has := func(tags ...string) map[string]struct{} {
		set := make(map[string]struct{})
		for _, tag := range tags {
			set[tag] = struct{}{}
		}
		return set
	}
	if !expr.Matches(has("a", "c")) {
		t.Error("a OR (b AND NOT c) should match {a,c}")
	}
	if expr.Matches(has("b", "c")) {
		t.Error("a OR (b AND NOT c) should not match {b,c}")
	}
	if !expr.Matches(has("b")) {
		t.Error("a OR (b AND NOT c) should match {b}")
	}
}

func TestParseTagExprParensAndQuotes(t *testing.T) {
	expr, err := ParseTagExpr(`(a OR 'needs space') AND "other"`)
	if err != nil {
		t.Fatalf("ParseTagExpr: %v", err)
	}
	tags := map[string]struct{}{"needs space": {}, "other": {}}
	if !expr.Matches(tags) {
		t.Error("quoted tags should match")
	}
}

func TestParseTagExprRoundTrip(t *testing.T) {
	for _, src := range []string{
		"a",
		"NOT a",
		"a AND b",
		"a OR b",
		"(a OR b) AND c",
		"NOT (a AND b)",
		"a AND b OR c AND d",
	} {
		expr, err := ParseTagExpr(src)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		again, err := ParseTagExpr(expr.String())
		if err != nil {
			t.Fatalf("reparse %q (from %q): %v", expr.String(), src, err)
		}
		if expr.String() != again.String() {
			t.Errorf("%q: render not stable: %q vs %q", src, expr.String(), again.String())
		}
	}
}

func TestParseTagExprSyntaxErrors(t *testing.T) {
	cases := []struct {
		input string
		pos   int
	}{
		{"", 0},
		{"AND a", 0},
		{"a AND", 5},
		{"(a OR b", 7},
		{"a b", 2},
		{"'unterminated", 0},
		{"a && b", 2},
	}
	for _, tc := range cases {
		_, err := ParseTagExpr(tc.input)
		if err == nil {
			t.Errorf("%q: expected syntax error", tc.input)
			continue
		}
		var se *errors.SyntaxError
		if !errors.IsSyntax(err) {
			t.Errorf("%q: error %v is not a SyntaxError", tc.input, err)
			continue
		}
		se = err.(*errors.SyntaxError)
		if se.Pos != tc.pos {
			t.Errorf("%q: Pos = %d, want %d", tc.input, se.Pos, tc.pos)
		}
	}
}

// =============================================================================
// Resolution
// =============================================================================

func TestResolveTagExpression(t *testing.T) {
	ctx := testContext(t)
	set, err := Resolve(ctx, Reference{
		Name:       "payment-apis",
		Definition: Definition{TagExpression: "payment AND api"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := sortedKeys(set), []string{"billing"}; !reflect.DeepEqual(got, want) {
		t.Errorf("resolved = %v, want %v", got, want)
	}
}

func TestResolveNotComplementsUniverse(t *testing.T) {
	ctx := testContext(t)
	set, err := Resolve(ctx, Reference{
		Name:       "not-deprecated",
		Definition: Definition{TagExpression: "NOT deprecated"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"billing", "checkout", "search"}
	if got := sortedKeys(set); !reflect.DeepEqual(got, want) {
		t.Errorf("resolved = %v, want %v", got, want)
	}
}

func TestResolveLayer(t *testing.T) {
	ctx := testContext(t)

	direct, err := Resolve(ctx, Reference{
		Name:       "domain-direct",
		Definition: Definition{Layer: &LayerSelector{Key: "domain"}},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := sortedKeys(direct), []string{"billing", "checkout"}; !reflect.DeepEqual(got, want) {
		t.Errorf("direct = %v, want %v", got, want)
	}

	subtree, err := Resolve(ctx, Reference{
		Name:       "domain-all",
		Definition: Definition{Layer: &LayerSelector{Key: "domain", IncludeDescendants: true}},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := sortedKeys(subtree), []string{"billing", "checkout", "search"}; !reflect.DeepEqual(got, want) {
		t.Errorf("subtree = %v, want %v", got, want)
	}
}

func TestResolveUnknownLayer(t *testing.T) {
	ctx := testContext(t)
	_, err := Resolve(ctx, Reference{
		Name:       "ghost",
		Definition: Definition{Layer: &LayerSelector{Key: "missing"}},
	})
	if !errors.Is(err, errors.ErrCodeLayerNotFound) {
		t.Fatalf("err = %v, want LAYER_NOT_FOUND", err)
	}
}

func TestResolveExplicitListDropsStaleKeys(t *testing.T) {
	ctx := testContext(t)
	set, err := Resolve(ctx, Reference{
		Name:       "pinned",
		Definition: Definition{ExplicitList: []string{"billing", "deleted-years-ago"}},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := sortedKeys(set), []string{"billing"}; !reflect.DeepEqual(got, want) {
		t.Errorf("resolved = %v, want %v", got, want)
	}
}

func TestResolveReflectsCurrentTags(t *testing.T) {
	ref := Reference{Name: "apis", Definition: Definition{TagExpression: "api"}}

	before := testContext(t, ref)
	got, err := ResolveName(before, "apis")
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("resolved = %v, want billing+search", sortedKeys(got))
	}

	// same definition against a snapshot where the tag moved
	s := graph.Snapshot{Components: []graph.Component{{Key: "other", Tags: []string{"api"}}}}
	g, err := graph.New(s)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	after := NewContext(g, []Reference{ref})
	got, err = ResolveName(after, "apis")
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if want := []string{"other"}; !reflect.DeepEqual(sortedKeys(got), want) {
		t.Errorf("resolved = %v, want %v", sortedKeys(got), want)
	}
}

func TestMemoResolvesOncePerSweep(t *testing.T) {
	ctx := testContext(t, Reference{Name: "apis", Definition: Definition{TagExpression: "api"}})
	memo := NewMemo(ctx)

	first, err := memo.Resolve("apis")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// callers own their copy; mutating it must not poison the cache
	delete(first, "billing")

	second, err := memo.Resolve("apis")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("cached copy = %v, want 2 entries", sortedKeys(second))
	}
}

func TestMemoUnknownReference(t *testing.T) {
	memo := NewMemo(testContext(t))
	if _, err := memo.Resolve("nope"); !errors.Is(err, errors.ErrCodeReferenceNotFound) {
		t.Fatalf("err = %v, want REFERENCE_NOT_FOUND", err)
	}
}

// =============================================================================
// Natural-language definitions
// =============================================================================

func TestParseDefinitionForms(t *testing.T) {
	cases := []struct {
		input string
		want  Definition
	}{
		{"components tagged with payment AND api", Definition{TagExpression: "payment AND api"}},
		{"components on layer $$$domain$$$", Definition{Layer: &LayerSelector{Key: "domain"}}},
		{"groups on $$$domain$$$", Definition{Layer: &LayerSelector{Key: "domain"}}},
		{"components in $$$domain$$$", Definition{Layer: &LayerSelector{Key: "domain", IncludeDescendants: true}}},
		{"components: billing, checkout", Definition{ExplicitList: []string{"billing", "checkout"}}},
	}
	for _, tc := range cases {
		got, err := ParseDefinition(tc.input)
		if err != nil {
			t.Errorf("%q: %v", tc.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%q: got %+v, want %+v", tc.input, got, tc.want)
		}
	}
}

func TestParseDefinitionRejectsUnknownForm(t *testing.T) {
	_, err := ParseDefinition("everything that moves")
	if !errors.Is(err, errors.ErrCodeInvalidDefinition) {
		t.Fatalf("err = %v, want INVALID_DEFINITION", err)
	}
}

func TestParseDefinitionBadExpression(t *testing.T) {
	_, err := ParseDefinition("components tagged with payment AND")
	if !errors.IsSyntax(err) {
		t.Fatalf("err = %v, want SyntaxError", err)
	}
}

func TestDefinitionValidateExactlyOne(t *testing.T) {
	bad := Definition{TagExpression: "a", ExplicitList: []string{"b"}}
	if err := bad.Validate(); !errors.Is(err, errors.ErrCodeInvalidDefinition) {
		t.Fatalf("err = %v, want INVALID_DEFINITION", err)
	}
	if err := (Definition{}).Validate(); !errors.Is(err, errors.ErrCodeInvalidDefinition) {
		t.Fatal("empty definition should be invalid")
	}
}
