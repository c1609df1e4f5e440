package statement

import (
	"github.com/google/uuid"

	"vantage/pkg/refs"
)

// Severity grades a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

/// Severity maps the modifier to the severity a violation carries:
// must → error, should → warning.
func (m Modifier) Severity() Severity {
	if m == ModifierShould {
		return SeverityWarning
	}
	return SeverityError
}

// Statement is an authored constraint: its raw text plus the current
// classification outcome. The ID is assigned at creation and never
// changes; everything else is recomputed when the text or the registered
// references change.
type Statement struct {
	ID              string         `json:"id" bson:"_id"`
	Text            string         `json:"text" bson:"text"`
	Classification  Classification `json:"classification" bson:"classification"`
	Type            Type           `json:"type" bson:"type"`
	Modifier        Modifier       `json:"modifier,omitempty" bson:"modifier,omitempty"`
	Expr            Expr           `json:"expr,omitempty" bson:"-"`
	UnresolvedNames []string       `json:"unresolved_names,omitempty" bson:"unresolved_names,omitempty"`
	SyntaxErr       string         `json:"syntax_error,omitempty" bson:"syntax_error,omitempty"`
}

// New creates a statement from raw text, assigns it an ID and classifies
// it against the registered references.
func New(text string, references map[string]refs.Reference) Statement {
	s := Statement{ID: uuid.NewString(), Text: text}
	s.Reclassify(references)
	return s
}

// Reclassify reruns the classification pipeline, e.g. after a reference
// was registered or repaired. The ID and text stay untouched.
func (s *Statement) Reclassify(references map[string]refs.Reference) {
	r := Parse(s.Text, references)
	s.Classification = r.Classification
	s.Type = r.Type
	s.Modifier = r.Modifier
	s.Expr = r.Expr
	s.UnresolvedNames = r.UnresolvedNames
	s.SyntaxErr = r.SyntaxErr
}

// IsFormal reports whether the statement can be evaluated.
func (s *Statement) IsFormal() bool {
	return s.Classification == ClassFormal && s.Expr != nil
}
