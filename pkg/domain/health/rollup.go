package health

// Worst returns the most severe scored status, or Grey if none is scored.
func Worst(statuses ...Status) Status {
	worst := Grey
	for _, s := range statuses {
		if s.Severity() > worst.Severity() {
			worst = s
		}
	}
	return worst
}

// Tally counts statuses across a set of repositories.
type Tally struct {
	Green int
	Amber int
	Red   int
	Grey  int
}

// NewTally counts the given statuses. Unknown values count as Grey.
func NewTally(statuses ...Status) Tally {
	var t Tally
	for _, s := range statuses {
		t.Add(s)
	}
	return t
}

func (t *Tally) Add(s Status) {
	switch s {
	case Green:
		t.Green++
	case Amber:
		t.Amber++
	case Red:
		t.Red++
	default:
		t.Grey++
	}
}

// Scored is the number of non-Grey entries.
func (t Tally) Scored() int {
	return t.Green + t.Amber + t.Red
}

// Proportions returns the Green, Amber and Red shares of scored entries.
// All are zero when nothing is scored.
func (t Tally) Proportions() (green, amber, red float64) {
	n := t.Scored()
	if n == 0 {
		return 0, 0, 0
	}
	return float64(t.Green) / float64(n), float64(t.Amber) / float64(n), float64(t.Red) / float64(n)
}

// Overall is the plurality status among scored entries. Ties go to the
// more severe status; Grey when nothing is scored.
func (t Tally) Overall() Status {
	if t.Scored() == 0 {
		return Grey
	}
	best, bestCount := Grey, -1
	for _, candidate := range []struct {
		status Status
		count  int
	}{{Red, t.Red}, {Amber, t.Amber}, {Green, t.Green}} {
		if candidate.count > bestCount {
			best, bestCount = candidate.status, candidate.count
		}
	}
	return best
}

// AverageRating averages A..E ratings as 1..5, rounding half up.
// Invalid ratings are ignored. ok is false when nothing valid remains.
func AverageRating(values []Rating) (avg Rating, ok bool) {
	sum, n := 0, 0
	for _, r := range values {
		if v := r.Value(); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return "", false
	}
	// (2*sum + n) / (2*n) rounds sum/n half up in integer arithmetic.
	rounded := (2*sum + n) / (2 * n)
	r, err := RatingFromValue(rounded)
	if err != nil {
		return "", false
	}
	return r, true
}
