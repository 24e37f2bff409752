package coordinator

import "sort"

// MembershipDiff returns the member ids to add (in updated but not original)
// and to remove (in original but not updated). Input order and duplicates do
// not matter; empty ids are ignored; both results are sorted.
func MembershipDiff(updated, original []string) (toAdd, toRemove []string) {
	u := toSet(updated)
	o := toSet(original)
	for id := range u {
		if _, ok := o[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range o {
		if _, ok := u[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
