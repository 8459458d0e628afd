package rds

import "strings"

// ResolveInstance maps a resource name to a database instance identifier
// among ids. Unless explicit is set, dots in the key become dashes. Every
// identifier containing the key is a candidate: a single candidate wins,
// otherwise an exact match, otherwise "<key>-v1". ok is false when nothing
// qualifies.
func ResolveInstance(key string, explicit bool, ids []string) (id string, ok bool) {
	if !explicit {
		key = strings.ReplaceAll(key, ".", "-")
	}

	var candidates []string
	for _, id := range ids {
		if strings.Contains(id, key) {
			candidates = append(candidates, id)
		}
	}

	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0], true
	}

	if id, ok := only(candidates, key); ok {
		return id, true
	}
	return only(candidates, key+"-v1")
}

// only returns want when it occurs exactly once in ids.
func only(ids []string, want string) (string, bool) {
	n := 0
	for _, id := range ids {
		if id == want {
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return want, true
}
