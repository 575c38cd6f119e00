// Package health scores raw repository metrics into a four-level status.
package health

import "fmt"

// Status summarises a metric family's standing for a repository.
type Status string

const (
	Green Status = "Green"
	Amber Status = "Amber"
	Red   Status = "Red"
	// Grey means not applicable: the feature is disabled or there is no data.
	Grey Status = "Grey"
)

// AllStatuses lists every status in severity order, Grey last.
var AllStatuses = []Status{Green, Amber, Red, Grey}

// Valid reports whether s is one of the four statuses.
func (s Status) Valid() bool {
	switch s {
	case Green, Amber, Red, Grey:
		return true
	}
	return false
}

// Severity orders Green < Amber < Red. Grey has no severity and returns 0.
func (s Status) Severity() int {
	switch s {
	case Green:
		return 1
	case Amber:
		return 2
	case Red:
		return 3
	}
	return 0
}

// ParseStatus accepts the exact status names.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid health status %q", s)
	}
	return st, nil
}

// Rating is a SonarCloud quality rating, A best, E worst.
type Rating string

const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingE Rating = "E"
)

var ratings = []Rating{RatingA, RatingB, RatingC, RatingD, RatingE}

// Valid reports whether r is A through E.
func (r Rating) Valid() bool {
	return r.Value() > 0
}

// Value maps A..E to 1..5, and anything else to 0.
func (r Rating) Value() int {
	for i, candidate := range ratings {
		if r == candidate {
			return i + 1
		}
	}
	return 0
}

// RatingFromValue maps 1..5 to A..E.
func RatingFromValue(v int) (Rating, error) {
	if v < 1 || v > len(ratings) {
		return "", fmt.Errorf("rating value %d out of range 1-5", v)
	}
	return ratings[v-1], nil
}
