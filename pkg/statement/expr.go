// Package statement parses human-authored architectural constraints into
// typed formal expressions. Statement text embeds reference names as
// $$$name$$$ tokens inside a small set of natural-language scaffolds; the
// parser classifies each statement as informal, semi-formal, formal or
// invalid and, for formal statements, emits one of seven expression types.
package statement

import (
	"fmt"
	"strings"
)

// Type identifies a statement archetype.
type Type string

const (
	TypeUnclassified   Type = "unclassified"
	TypeExistence      Type = "existence"
	TypeContainment    Type = "containment"
	TypeExclusion      Type = "exclusion"
	TypeCardinality    Type = "cardinality"
	TypeCoverage       Type = "coverage"
	TypeCorrespondence Type = "correspondence"
	TypeRefinement     Type = "refinement"
)

// Classification is the lifecycle stage of a statement.
type Classification string

const (
	// ClassInformal marks raw text no scaffold recognizes.
	ClassInformal Classification = "informal"
	// ClassSemiFormal marks a recognized scaffold with unresolved names.
	ClassSemiFormal Classification = "semi-formal"
	// ClassFormal marks a recognized scaffold with all names resolved.
	ClassFormal Classification = "formal"
	// ClassInvalid marks a statement bound to a broken reference definition.
	ClassInvalid Classification = "invalid"
)

// Modifier scales the severity of a violation, never the verdict.
type Modifier string

const (
	ModifierMust   Modifier = "must"   // violation is error-level
	ModifierShould Modifier = "should" // violation is warning-level
)

// CardinalityOp compares a resolved set's size against a constant.
type CardinalityOp string

const (
	OpEq CardinalityOp = "=="
	OpNe CardinalityOp = "!="
	OpGe CardinalityOp = ">="
	OpLe CardinalityOp = "<="
	OpGt CardinalityOp = ">"
	OpLt CardinalityOp = "<"
)

// Compare applies the operator to |set| and the constant.
func (op CardinalityOp) Compare(size, n int) bool {
	switch op {
	case OpEq:
		return size == n
	case OpNe:
		return size != n
	case OpGe:
		return size >= n
	case OpLe:
		return size <= n
	case OpGt:
		return size > n
	case OpLt:
		return size < n
	}
	return false
}

// CoverageAll is the coverage subject meaning every component in the
// snapshot, written "all components" or "every component in the system".
const CoverageAll = "*"

// =============================================================================
// Expression Variants
// =============================================================================

// Expr is a formal statement expression: exactly one of the seven variant
// structs. Classification returns one variant and never reclassifies it in
// place.
type Expr interface {
	// Type returns the archetype tag of the variant.
	Type() Type
	// ReferenceNames lists the reference names the expression uses, in
	// scaffold order. The coverage wildcard is not a reference name.
	ReferenceNames() []string
	// render produces the canonical scaffold text with the given modifier.
	render(mod Modifier) string
}

// Existence requires a reference to resolve to a non-empty set.
type Existence struct {
	Ref string `json:"ref" bson:"ref"`
}

func (e Existence) Type() Type { return TypeExistence }
func (e Existence) ReferenceNames() []string { return []string{e.Ref} }
func (e Existence) render(mod Modifier) string {
	return fmt.Sprintf("there %s be %s", mod, refSpan(e.Ref))
}

// Containment requires Resolve(Subject) ⊆ Resolve(Container).
type Containment struct {
	Subject   string `json:"subject" bson:"subject"`
	Container string `json:"container" bson:"container"`
}

func (e Containment) Type() Type { return TypeContainment }
func (e Containment) ReferenceNames() []string { return []string{e.Subject, e.Container} }
func (e Containment) render(mod Modifier) string {
	return fmt.Sprintf("%s %s be in %s", refSpan(e.Subject), mod, refSpan(e.Container))
}

// Exclusion forbids dependency edges from Subject members to Forbidden
// members. Transitive extends the check to reachability.
type Exclusion struct {
	Subject    string `json:"subject" bson:"subject"`
	Forbidden  string `json:"forbidden" bson:"forbidden"`
	Transitive bool   `json:"transitive,omitempty" bson:"transitive,omitempty"`
}

func (e Exclusion) Type() Type { return TypeExclusion }
func (e Exclusion) ReferenceNames() []string { return []string{e.Subject, e.Forbidden} }
func (e Exclusion) render(mod Modifier) string {
	if e.Transitive {
		return fmt.Sprintf("%s %s not depend transitively on %s", refSpan(e.Subject), mod, refSpan(e.Forbidden))
	}
	return fmt.Sprintf("%s %s not depend on %s", refSpan(e.Subject), mod, refSpan(e.Forbidden))
}

// Cardinality compares the size of a resolved set against a constant.
type Cardinality struct {
	Ref   string        `json:"ref" bson:"ref"`
	Op    CardinalityOp `json:"op" bson:"op"`
	Value int           `json:"value" bson:"value"`
}

func (e Cardinality) Type() Type { return TypeCardinality }
func (e Cardinality) ReferenceNames() []string { return []string{e.Ref} }
func (e Cardinality) render(mod Modifier) string {
	var phrase string
	switch e.Op {
	case OpEq:
		phrase = "exactly"
	case OpNe:
		phrase = "not exactly"
	case OpGe:
		phrase = "at least"
	case OpLe:
		phrase = "at most"
	case OpGt:
		phrase = "more than"
	case OpLt:
		phrase = "fewer than"
	default:
		phrase = "exactly"
	}
	return fmt.Sprintf("there %s be %s %d %s", mod, phrase, e.Value, refSpan(e.Ref))
}

// Coverage requires every subject member to belong to at least one group of
// the layer behind Layer. Subject may be CoverageAll.
type Coverage struct {
	Subject string `json:"subject" bson:"subject"`
	Layer   string `json:"layer" bson:"layer"`
}

func (e Coverage) Type() Type { return TypeCoverage }
func (e Coverage) ReferenceNames() []string {
	if e.Subject == CoverageAll {
		return []string{e.Layer}
	}
	return []string{e.Subject, e.Layer}
}
func (e Coverage) render(mod Modifier) string {
	subject := "all components"
	if e.Subject != CoverageAll {
		subject = "all " + refSpan(e.Subject)
	}
	return fmt.Sprintf("%s %s be covered by %s", subject, mod, refSpan(e.Layer))
}

// Correspondence requires a 1:1 exact-member bijection between the groups
// of two layer-backed references.
type Correspondence struct {
	A string `json:"a" bson:"a"`
	B string `json:"b" bson:"b"`
}

func (e Correspondence) Type() Type { return TypeCorrespondence }
func (e Correspondence) ReferenceNames() []string { return []string{e.A, e.B} }
func (e Correspondence) render(mod Modifier) string {
	return fmt.Sprintf("%s %s correspond with %s", refSpan(e.A), mod, refSpan(e.B))
}

// Refinement requires Fine's groups to partition each of Coarse's groups
// exactly (many:1 covering).
type Refinement struct {
	Fine   string `json:"fine" bson:"fine"`
	Coarse string `json:"coarse" bson:"coarse"`
}

func (e Refinement) Type() Type { return TypeRefinement }
func (e Refinement) ReferenceNames() []string { return []string{e.Fine, e.Coarse} }
func (e Refinement) render(mod Modifier) string {
	return fmt.Sprintf("%s %s refine %s", refSpan(e.Fine), mod, refSpan(e.Coarse))
}

// Render regenerates the canonical scaffold text of an expression. Parsing
// the rendered text reproduces the expression type and reference names.
func Render(expr Expr, mod Modifier) string {
	if mod != ModifierShould {
		mod = ModifierMust
	}
	return expr.render(mod)
}

func refSpan(name string) string {
	return "$$$" + strings.TrimSpace(name) + "$$$"
}
