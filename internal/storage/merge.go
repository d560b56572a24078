package storage

import "time"

// The merge policy: a later observation of an entity may add or sharpen
// fields but never blank out a field an earlier, deeper observation
// filled in. A listing page that only carries a title must not erase the
// summary learned from the detail page.

// Merge combines an existing document with an incoming partial one.
// Incoming values win unless they are empty while the existing value is
// not, in which case the existing value is kept. Fields absent from
// incoming are left untouched.
func Merge(existing Document, incoming Fields) Document {
	merged := make(Document, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if isEmpty(v) && !isEmpty(merged[k]) {
			continue
		}
		merged[k] = v
	}
	return merged
}

// PruneFields drops empty values from a write set so backends can merge
// blindly in a single atomic statement. Go zero values stand in for
// fields the scraper omitted.
func PruneFields(f Fields) Fields {
	pruned := make(Fields, len(f))
	for k, v := range f {
		if isEmpty(v) {
			continue
		}
		pruned[k] = v
	}
	return pruned
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	case int32:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
