package resource

import "fmt"

// PropDiff describes one differing property between two items.
type PropDiff struct {
	Prop   string
	Detail string
	// Nested carries the inner report when the property holds modeled items.
	Nested []PropDiff
}

// DiffReport is the outcome of a deep structural comparison.
type DiffReport struct {
	Diffs []PropDiff
}

// IsDiff reports whether any difference was found.
func (r DiffReport) IsDiff() bool { return len(r.Diffs) > 0 }

// IsDiff is a convenience wrapper around Diff that stops at the first
// difference.
func (it *Item) IsDiff(other *Item) bool {
	return it.diff(other, true).IsDiff()
}

// Diff deep-compares two items property by property: arrays must match
// length and pairwise, nested items compare recursively, and the various
// empty representations ("", null, absent) compare equal to each other.
func (it *Item) Diff(other *Item) DiffReport {
	return it.diff(other, false)
}

func (it *Item) diff(other *Item, bailout bool) DiffReport {
	if other == nil {
		return DiffReport{Diffs: []PropDiff{{Detail: "compared item is nil"}}}
	}
	if other.schema != it.schema {
		return DiffReport{Diffs: []PropDiff{{
			Detail: fmt.Sprintf("items are of different type: %q -> %q", it.schema.itemName, other.schema.itemName),
		}}}
	}

	var diffs []PropDiff
	add := func(name, detail string, nested []PropDiff) {
		diffs = append(diffs, PropDiff{Prop: name, Detail: detail, Nested: nested})
	}

	for _, p := range it.schema.props {
		myVal, myOK := it.values[p.Name]
		otherVal, otherOK := other.values[p.Name]
		myEmpty := !myOK || isEmptyScalar(myVal)
		otherEmpty := !otherOK || isEmptyScalar(otherVal)

		switch {
		case myEmpty && otherEmpty:
			// all empty representations are the same
		case myEmpty:
			add(p.Name, fmt.Sprintf("<empty> -> %v", otherVal), nil)
		case otherEmpty:
			add(p.Name, fmt.Sprintf("%v -> <empty>", myVal), nil)
		case p.Nested != nil && p.Kind == KindArray:
			mine, _ := myVal.([]*Item)
			theirs, _ := otherVal.([]*Item)
			if len(mine) != len(theirs) {
				add(p.Name, fmt.Sprintf("arrays of different lengths; %d -> %d", len(mine), len(theirs)), nil)
				break
			}
			for i := range mine {
				elDiff := mine[i].diff(theirs[i], bailout)
				if elDiff.IsDiff() {
					add(p.Name, fmt.Sprintf("difference at index %d", i), elDiff.Diffs)
					if bailout {
						break
					}
				}
			}
		case p.Nested != nil:
			mine, _ := myVal.(*Item)
			theirs, _ := otherVal.(*Item)
			if mine == nil || theirs == nil {
				add(p.Name, "nested value type mismatch", nil)
				break
			}
			if nested := mine.diff(theirs, bailout); nested.IsDiff() {
				add(p.Name, "nested item differs", nested.Diffs)
			}
		case p.Kind == KindArray:
			mine, _ := myVal.([]any)
			theirs, _ := otherVal.([]any)
			if len(mine) != len(theirs) {
				add(p.Name, fmt.Sprintf("arrays of different lengths; %d -> %d", len(mine), len(theirs)), nil)
				break
			}
			for i := range mine {
				if mine[i] != theirs[i] {
					add(p.Name, fmt.Sprintf("difference at index %d; %v -> %v", i, mine[i], theirs[i]), nil)
					break
				}
			}
		default:
			if myVal != otherVal {
				add(p.Name, fmt.Sprintf("%v -> %v", myVal, otherVal), nil)
			}
		}

		if bailout && len(diffs) > 0 {
			break
		}
	}
	return DiffReport{Diffs: diffs}
}

// DiffCheck compares two optional items, treating nil and nil as equal.
func DiffCheck(a, b *Item) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return a.IsDiff(b)
}

// DiffCheckAll pairwise-compares two item slices.
func DiffCheckAll(a, b []*Item) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if DiffCheck(a[i], b[i]) {
			return true
		}
	}
	return false
}
