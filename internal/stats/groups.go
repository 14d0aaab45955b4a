package stats

import "github.com/noah-isme/handout-api/internal/tagtree"

// ExerciseIDsByTagGroup projects per-tag exercise sets onto the tree's group paths.
//
// A node resolves to its own tag's set, restricted to the set of the nearest ancestor
// whose tag has one, united with the resolved sets of its children. Every node is
// emitted under its slash-joined path; tags absent from byTag resolve to empty sets.
// Membership comes only from the tree's declared structure.
func ExerciseIDsByTagGroup(tree tagtree.Tree, byTag map[string]IDSet) map[string]IDSet {
	out := make(map[string]IDSet)
	for _, entry := range tree {
		project(entry, "", nil, byTag, out)
	}
	return out
}

func project(entry tagtree.Entry, parent string, scope IDSet, byTag map[string]IDSet, out map[string]IDSet) IDSet {
	path := tagtree.Join(parent, entry.Slug)
	resolved := IDSet{}
	childScope := scope

	if own, ok := byTag[entry.Slug]; ok {
		if scope != nil {
			own = own.Intersect(scope)
		}
		resolved.Union(own)
		childScope = own
	}

	for _, child := range entry.Node.Children {
		resolved.Union(project(child, path, childScope, byTag, out))
	}

	out[path] = resolved
	return resolved
}

// CountTotalExercisesByTagGroup returns the cardinality of every group's set.
func CountTotalExercisesByTagGroup(byGroup map[string]IDSet) map[string]int {
	counts := make(map[string]int, len(byGroup))
	for path, ids := range byGroup {
		counts[path] = len(ids)
	}
	return counts
}

// SumPointsByTagGroup adds the points of every exercise in each group. Exercises
// without points contribute nothing and an empty group sums to 0.
func SumPointsByTagGroup(points map[uint]float64, byGroup map[string]IDSet) map[string]float64 {
	sums := make(map[string]float64, len(byGroup))
	for path, ids := range byGroup {
		total := 0.0
		// ascending order keeps float sums reproducible
		for _, id := range ids.Sorted() {
			total += points[id]
		}
		sums[path] = total
	}
	return sums
}
