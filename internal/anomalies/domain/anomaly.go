package anomalies

import (
	"strings"
	"time"
)

// Kind identifies an acknowledgement table.
type Kind string

const (
	KindSuspicious Kind = "suspicious"
	KindLate       Kind = "late"
)

// Kinds returns both anomaly kinds in canonical order.
func Kinds() []Kind {
	return []Kind{KindSuspicious, KindLate}
}

// ParseKind validates a kind string.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindSuspicious:
		return KindSuspicious, true
	case KindLate:
		return KindLate, true
	default:
		return "", false
	}
}

// Anomaly is an acknowledgeable phone-number record. Suspicious rows
// carry FilledTime; late rows carry SentTime and HoursLate. Phone is
// the natural key within its table.
type Anomaly struct {
	Phone       string
	FilledTime  string
	SentTime    string
	HoursLate   string
	Accepted    bool
	LastUpdated time.Time
}

// ParseAccepted reads the wire representation of the acknowledgement
// flag. "TRUE", "true", "t", "yes" and "1" all count as accepted.
func ParseAccepted(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "yes", "1":
		return true
	default:
		return false
	}
}

// FormatAccepted writes the canonical wire representation.
func FormatAccepted(accepted bool) string {
	if accepted {
		return "TRUE"
	}
	return "FALSE"
}

// FilterNew drops candidates whose phone number is already accepted in
// the existing table. Unmatched candidates pass through unaccepted with
// LastUpdated set to now.
func FilterNew(candidates []Anomaly, existing []Anomaly, now time.Time) []Anomaly {
	accepted := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		if row.Accepted {
			accepted[row.Phone] = struct{}{}
		}
	}

	fresh := make([]Anomaly, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if candidate.Phone == "" {
			continue
		}
		if _, ok := accepted[candidate.Phone]; ok {
			continue
		}
		if _, ok := seen[candidate.Phone]; ok {
			continue
		}
		seen[candidate.Phone] = struct{}{}
		candidate.Accepted = false
		candidate.LastUpdated = now
		fresh = append(fresh, candidate)
	}
	return fresh
}

// Merge upserts incoming rows into the existing table keyed by phone.
// Rows already accepted keep their stored record untouched; unaccepted
// matches are overwritten rather than appended.
func Merge(existing []Anomaly, incoming []Anomaly) []Anomaly {
	merged := make([]Anomaly, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, row := range merged {
		index[row.Phone] = i
	}

	for _, row := range incoming {
		if row.Phone == "" {
			continue
		}
		i, ok := index[row.Phone]
		if !ok {
			index[row.Phone] = len(merged)
			merged = append(merged, row)
			continue
		}
		if merged[i].Accepted {
			continue
		}
		merged[i] = row
	}
	return merged
}
