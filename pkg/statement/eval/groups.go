package eval

import (
	"fmt"
	"slices"
	"strings"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
	"vantage/pkg/refs"
	"vantage/pkg/statement"
)

// =============================================================================
// Group-Based Types: Coverage, Correspondence, Refinement
// =============================================================================

// groupsBehind returns the groups of the layer a reference points at.
// Coverage, correspondence and refinement compare group structure, so their
// operands must be layer-backed references; tag expressions and explicit
// lists have no groups to compare.
func groupsBehind(ctx refs.Context, name string) ([]graph.Group, error) {
	ref, ok := ctx.Lookup(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeReferenceNotFound, "reference %q is not registered", name)
	}
	sel := ref.Definition.Layer
	if sel == nil {
		return nil, errors.New(errors.ErrCodeNotLayerBacked, "reference %q is not layer-backed", name)
	}
	layer, ok := ctx.Graph.Layer(sel.Key)
	if !ok {
		return nil, errors.New(errors.ErrCodeLayerNotFound, "layer %q not in snapshot", sel.Key)
	}

	groups := slices.Clone(layer.Groups)
	if sel.IncludeDescendants {
		queue := slices.Clone(ctx.Graph.SubLayers(sel.Key))
		for len(queue) > 0 {
			key := queue[0]
			queue = queue[1:]
			if child, ok := ctx.Graph.Layer(key); ok {
				groups = append(groups, child.Groups...)
				queue = append(queue, ctx.Graph.SubLayers(key)...)
			}
		}
	}
	return groups, nil
}

func evalCoverage(memo *refs.Memo, e statement.Coverage) (Result, error) {
	ctx := memo.Context()

	var subject map[string]struct{}
	if e.Subject == statement.CoverageAll {
		subject = make(map[string]struct{})
		for _, key := range ctx.Graph.ComponentKeys() {
			subject[key] = struct{}{}
		}
	} else {
		var err error
		subject, err = memo.Resolve(e.Subject)
		if err != nil {
			return Result{}, err
		}
	}

	groups, err := groupsBehind(ctx, e.Layer)
	if err != nil {
		return Result{}, err
	}

	covered := make(map[string]struct{})
	for _, grp := range groups {
		for _, member := range grp.Members {
			covered[member] = struct{}{}
		}
	}

	result := Result{Status: StatusSatisfied}
	result.Evidence.addSet(subjectLabel(e.Subject), subject)
	for member := range subject {
		if _, ok := covered[member]; !ok {
			result.Evidence.Offenders = append(result.Evidence.Offenders, member)
		}
	}
	if len(result.Evidence.Offenders) > 0 {
		slices.Sort(result.Evidence.Offenders)
		result.Status = StatusViolated
	}
	return result, nil
}

func subjectLabel(subject string) string {
	if subject == statement.CoverageAll {
		return "all components"
	}
	return subject
}

// memberKey canonicalizes a group's member set so groups can be compared
// by content rather than by name.
func memberKey(members []string) string {
	sorted := slices.Clone(members)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return strings.Join(sorted, "\x00")
}

// duplicateSets returns the group names that share an identical member set
// with another group on the same side.
func duplicateSets(groups []graph.Group) []string {
	byContent := make(map[string][]string)
	for _, grp := range groups {
		k := memberKey(grp.Members)
		byContent[k] = append(byContent[k], grp.Key)
	}
	var dups []string
	for _, names := range byContent {
		if len(names) > 1 {
			dups = append(dups, names...)
		}
	}
	slices.Sort(dups)
	return dups
}

func evalCorrespondence(memo *refs.Memo, e statement.Correspondence) (Result, error) {
	ctx := memo.Context()
	groupsA, err := groupsBehind(ctx, e.A)
	if err != nil {
		return Result{}, err
	}
	groupsB, err := groupsBehind(ctx, e.B)
	if err != nil {
		return Result{}, err
	}

	var result Result

	// more than one group with the same member set makes the bijection
	// ambiguous: report evidence instead of silently picking a pairing
	if dups := append(duplicateSets(groupsA), duplicateSets(groupsB)...); len(dups) > 0 {
		result.Status = StatusNotEvaluated
		result.Evidence.Ambiguities = []string{
			fmt.Sprintf("%s: groups with identical member sets: %s", errors.ErrCodeAmbiguousMatch, strings.Join(dups, ", ")),
		}
		return result, nil
	}

	byContentB := make(map[string]string, len(groupsB))
	for _, grp := range groupsB {
		byContentB[memberKey(grp.Members)] = grp.Key
	}

	matchedB := make(map[string]struct{})
	result.Status = StatusSatisfied
	for _, grp := range groupsA {
		partner, ok := byContentB[memberKey(grp.Members)]
		if !ok {
			result.Evidence.Offenders = append(result.Evidence.Offenders, grp.Key)
			continue
		}
		matchedB[partner] = struct{}{}
		result.Evidence.Pairings = append(result.Evidence.Pairings, GroupPairing{From: grp.Key, To: partner})
	}
	for _, grp := range groupsB {
		if _, ok := matchedB[grp.Key]; !ok {
			result.Evidence.Offenders = append(result.Evidence.Offenders, grp.Key)
		}
	}

	if len(result.Evidence.Offenders) > 0 {
		slices.Sort(result.Evidence.Offenders)
		result.Status = StatusViolated
	}
	return result, nil
}

func evalRefinement(memo *refs.Memo, e statement.Refinement) (Result, error) {
	ctx := memo.Context()
	fine, err := groupsBehind(ctx, e.Fine)
	if err != nil {
		return Result{}, err
	}
	coarse, err := groupsBehind(ctx, e.Coarse)
	if err != nil {
		return Result{}, err
	}

	var result Result

	if dups := append(duplicateSets(fine), duplicateSets(coarse)...); len(dups) > 0 {
		result.Status = StatusNotEvaluated
		result.Evidence.Ambiguities = []string{
			fmt.Sprintf("%s: groups with identical member sets: %s", errors.ErrCodeAmbiguousMatch, strings.Join(dups, ", ")),
		}
		return result, nil
	}

	coarseSets := make(map[string]map[string]struct{}, len(coarse))
	for _, grp := range coarse {
		set := make(map[string]struct{}, len(grp.Members))
		for _, m := range grp.Members {
			set[m] = struct{}{}
		}
		coarseSets[grp.Key] = set
	}

	// every fine group must sit inside exactly one coarse group
	result.Status = StatusSatisfied
	assigned := make(map[string][]string) // coarse key -> fine keys
	for _, grp := range fine {
		var homes []string
		for _, cg := range coarse {
			if isSubset(grp.Members, coarseSets[cg.Key]) {
				homes = append(homes, cg.Key)
			}
		}
		switch len(homes) {
		case 0:
			result.Evidence.Offenders = append(result.Evidence.Offenders, grp.Key)
		case 1:
			assigned[homes[0]] = append(assigned[homes[0]], grp.Key)
			result.Evidence.Pairings = append(result.Evidence.Pairings, GroupPairing{From: grp.Key, To: homes[0]})
		default:
			result.Status = StatusNotEvaluated
			result.Evidence.Ambiguities = append(result.Evidence.Ambiguities,
				fmt.Sprintf("%s: group %s fits multiple groups: %s", errors.ErrCodeAmbiguousMatch, grp.Key, strings.Join(homes, ", ")))
		}
	}
	if result.Status == StatusNotEvaluated {
		return result, nil
	}

	// the fine groups assigned to a coarse group must cover it exactly
	for _, cg := range coarse {
		union := make(map[string]struct{})
		for _, fk := range assigned[cg.Key] {
			for _, fg := range fine {
				if fg.Key == fk {
					for _, m := range fg.Members {
						union[m] = struct{}{}
					}
				}
			}
		}
		if len(union) != len(coarseSets[cg.Key]) {
			result.Evidence.Offenders = append(result.Evidence.Offenders, cg.Key)
		}
	}

	if len(result.Evidence.Offenders) > 0 {
		slices.Sort(result.Evidence.Offenders)
		result.Status = StatusViolated
	}
	return result, nil
}

func isSubset(members []string, super map[string]struct{}) bool {
	for _, m := range members {
		if _, ok := super[m]; !ok {
			return false
		}
	}
	return true
}
