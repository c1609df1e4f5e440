package refs

import (
	"regexp"
	"strings"

	"vantage/pkg/errors"
)

// =============================================================================
// References
// =============================================================================

// LayerSelector points a reference at a layer's member union. With
// IncludeDescendants the whole layer subtree contributes members.
type LayerSelector struct {
	Key                string `json:"key" bson:"key"`
	IncludeDescendants bool   `json:"include_descendants,omitempty" bson:"include_descendants,omitempty"`
}

// Definition states how a reference selects entities. Exactly one field is
// set. Definitions are intensional: they never hold member lists computed
// at definition time (ExplicitList holds keys the author named, which is
// the intension itself).
type Definition struct {
	TagExpression string         `json:"tag_expression,omitempty" bson:"tag_expression,omitempty"`
	Layer         *LayerSelector `json:"layer,omitempty" bson:"layer,omitempty"`
	ExplicitList  []string       `json:"explicit_list,omitempty" bson:"explicit_list,omitempty"`
}

// Validate checks that exactly one selection mode is set and, for tag
// expressions, that the expression parses.
func (d Definition) Validate() error {
	set := 0
	if d.TagExpression != "" {
		set++
	}
	if d.Layer != nil {
		set++
	}
	if d.ExplicitList != nil {
		set++
	}
	if set != 1 {
		return errors.New(errors.ErrCodeInvalidDefinition, "definition must set exactly one of tag expression, layer or explicit list")
	}
	if d.TagExpression != "" {
		if _, err := ParseTagExpr(d.TagExpression); err != nil {
			return err
		}
	}
	if d.Layer != nil {
		if err := errors.ValidateKey(d.Layer.Key); err != nil {
			return err
		}
	}
	for _, k := range d.ExplicitList {
		if err := errors.ValidateKey(k); err != nil {
			return err
		}
	}
	return nil
}

// Reference is a named selection of graph entities.
type Reference struct {
	Name       string     `json:"name" bson:"name"`
	Definition Definition `json:"definition" bson:"definition"`
}

// Validate checks the name and the definition.
func (r Reference) Validate() error {
	if err := errors.ValidateKey(r.Name); err != nil {
		return err
	}
	return r.Definition.Validate()
}

// =============================================================================
// Natural-Language Definitions
// =============================================================================

var (
	taggedWithRe = regexp.MustCompile(`(?i)^components\s+tagged\s+with\s+(.+)$`)
	onLayerRe    = regexp.MustCompile(`(?i)^(?:components|groups)\s+on\s+(?:layer\s+)?\$\$\$([A-Za-z0-9_:-]+)\$\$\$$`)
	inLayerRe    = regexp.MustCompile(`(?i)^components\s+in\s+\$\$\$([A-Za-z0-9_:-]+)\$\$\$$`)
	listRe       = regexp.MustCompile(`(?i)^components\s*:\s*(.+)$`)
)

// ParseDefinition turns a natural-language definition sentence into a
// Definition. Accepted forms:
//
//	components tagged with <tag expression>
//	components on [layer] $$$layer-key$$$     (direct members)
//	groups on [layer] $$$layer-key$$$
//	components in $$$layer-key$$$             (subtree, descendants included)
//	components: key1, key2, ...
//
// Unrecognized sentences return an INVALID_DEFINITION error; a recognized
// tagged-with form with a malformed expression returns the SyntaxError.
func ParseDefinition(text string) (Definition, error) {
	trimmed := strings.TrimSpace(text)

	if m := taggedWithRe.FindStringSubmatch(trimmed); m != nil {
		d := Definition{TagExpression: strings.TrimSpace(m[1])}
		if _, err := ParseTagExpr(d.TagExpression); err != nil {
			return Definition{}, err
		}
		return d, nil
	}

	if m := onLayerRe.FindStringSubmatch(trimmed); m != nil {
		return Definition{Layer: &LayerSelector{Key: m[1]}}, nil
	}

	if m := inLayerRe.FindStringSubmatch(trimmed); m != nil {
		return Definition{Layer: &LayerSelector{Key: m[1], IncludeDescendants: true}}, nil
	}

	if m := listRe.FindStringSubmatch(trimmed); m != nil {
		var keys []string
		for _, part := range strings.Split(m[1], ",") {
			key := strings.TrimSpace(part)
			if key == "" {
				continue
			}
			if err := errors.ValidateKey(key); err != nil {
				return Definition{}, err
			}
			keys = append(keys, key)
		}
		if len(keys) == 0 {
			return Definition{}, errors.New(errors.ErrCodeInvalidDefinition, "explicit list names no keys")
		}
		return Definition{ExplicitList: keys}, nil
	}

	return Definition{}, errors.New(errors.ErrCodeInvalidDefinition, "unrecognized definition: %q", text)
}
