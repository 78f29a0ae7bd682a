package versions

import "strings"

// Clone returns a copy of the list so callers can mutate it freely.
func Clone(list []Record) []Record {
	if list == nil {
		return nil
	}
	out := make([]Record, len(list))
	copy(out, list)
	return out
}

// Active returns the first active record in the list.
func Active(list []Record) (Record, bool) {
	for _, rec := range list {
		if rec.Active() {
			return rec, true
		}
	}
	return Record{}, false
}

// ActiveCount counts records flagged active. A well formed history has at most one.
func ActiveCount(list []Record) int {
	n := 0
	for _, rec := range list {
		if rec.Active() {
			n++
		}
	}
	return n
}

// Find looks up a record by identifier.
func Find(list []Record, id ID) (Record, bool) {
	for _, rec := range list {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// HasVersion reports whether a version string is already used in the list.
func HasVersion(list []Record, version string) bool {
	version = strings.TrimSpace(version)
	for _, rec := range list {
		if rec.Version == version {
			return true
		}
	}
	return false
}

// Activate returns a copy of list where the record with id is active and every other
// record is reverted. The second result is false when id is absent.
func Activate(list []Record, id ID) ([]Record, bool) {
	if _, ok := Find(list, id); !ok {
		return Clone(list), false
	}
	out := Clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].Status = StatusActive
		} else {
			out[i].Status = StatusReverted
		}
	}
	return out, true
}

// Prepend returns a copy of list with rec placed first as the active record.
func Prepend(list []Record, rec Record) []Record {
	rec.Status = StatusActive
	out := make([]Record, 0, len(list)+1)
	out = append(out, rec)
	for _, existing := range list {
		existing.Status = StatusReverted
		out = append(out, existing)
	}
	return out
}
