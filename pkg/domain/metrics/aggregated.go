package metrics

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// NotAvailable is stored in place of a value that no repository reported.
const NotAvailable = "NA"

// Count is a total that may be unavailable. It encodes as a number, or as
// "NA" when Valid is false.
type Count struct {
	Value int64
	Valid bool
}

// CountOf returns a valid Count.
func CountOf(v int64) Count {
	return Count{Value: v, Valid: true}
}

func (c Count) String() string {
	if !c.Valid {
		return NotAvailable
	}
	return strconv.FormatInt(c.Value, 10)
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(c.Value)
}

func (c *Count) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != NotAvailable {
			return fmt.Errorf("invalid count %q", s)
		}
		*c = Count{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid count: %w", err)
	}
	*c = CountOf(v)
	return nil
}

func (c Count) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !c.Valid {
		return bson.MarshalValue(NotAvailable)
	}
	return bson.MarshalValue(c.Value)
}

func (c *Count) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		if s := raw.StringValue(); s != NotAvailable {
			return fmt.Errorf("invalid count %q", s)
		}
		*c = Count{}
	case bsontype.Int32:
		*c = CountOf(int64(raw.Int32()))
	case bsontype.Int64:
		*c = CountOf(raw.Int64())
	case bsontype.Double:
		*c = CountOf(int64(raw.Double()))
	default:
		return fmt.Errorf("invalid count bson type %s", t)
	}
	return nil
}

// AggregatedRepo rolls repository metrics up to one hierarchy item.
type AggregatedRepo struct {
	Timestamps                  `bson:",inline"`
	Size                        int           `json:"size" bson:"size"`
	TotalLinesOfCode            Count         `json:"totalLinesOfCode" bson:"totalLinesOfCode"`
	CriticalDependabot          Count         `json:"criticalDependabot" bson:"criticalDependabot"`
	HighDependabot              Count         `json:"highDependabot" bson:"highDependabot"`
	MediumDependabot            Count         `json:"mediumDependabot" bson:"mediumDependabot"`
	LowDependabot               Count         `json:"lowDependabot" bson:"lowDependabot"`
	ProportionDependabotEnabled float64       `json:"proportionDependabotEnabled" bson:"proportionDependabotEnabled"`
	AverageCodeCoverage         float64       `json:"averageCodeCoverage" bson:"averageCodeCoverage"`
	AverageBugs                 float64       `json:"averageBugs" bson:"averageBugs"`
	AverageCodeSmells           float64       `json:"averageCodeSmells" bson:"averageCodeSmells"`
	AverageSecurityRating       string        `json:"averageSecurityRating" bson:"averageSecurityRating"`
	AverageReliabilityRating    string        `json:"averageReliabilityRating" bson:"averageReliabilityRating"`
	AverageSqaleRating          string        `json:"averageSqaleRating" bson:"averageSqaleRating"`
	ProportionGreenRepos        float64       `json:"proportionGreenRepos" bson:"proportionGreenRepos"`
	ProportionAmberRepos        float64       `json:"proportionAmberRepos" bson:"proportionAmberRepos"`
	ProportionRedRepos          float64       `json:"proportionRedRepos" bson:"proportionRedRepos"`
	OverallServiceHealth        health.Status `json:"overallServiceHealth" bson:"overallServiceHealth"`
	HierarchyItem               string        `json:"hierarchyItem" bson:"hierarchyItem"`
}

func (a *AggregatedRepo) Collection() string { return CollectionAggregatedRepos }
func (a *AggregatedRepo) Key() string        { return a.HierarchyItem }

func (a *AggregatedRepo) Validate() error {
	v := newValidator(CollectionAggregatedRepos)
	v.required("hierarchyItem", a.HierarchyItem)
	v.nonNegative("size", float64(a.Size))
	for field, p := range map[string]float64{
		"proportionDependabotEnabled": a.ProportionDependabotEnabled,
		"proportionGreenRepos":        a.ProportionGreenRepos,
		"proportionAmberRepos":        a.ProportionAmberRepos,
		"proportionRedRepos":          a.ProportionRedRepos,
	} {
		if p < 0 || p > 1 {
			v.fail(field, "must be between 0 and 1")
		}
	}
	if !a.OverallServiceHealth.Valid() {
		v.fail("overallServiceHealth", reasonRequired)
	}
	return v.err()
}

// Aggregate rolls the given repositories up under hierarchyItem.
//
// Dependabot totals cover enabled repositories only and are NA when none is
// enabled. Code-quality totals and averages cover SonarCloud-enabled
// repositories reporting the measure. Green/Amber/Red proportions are over
// repositories with a scored OverallHealth.
func Aggregate(hierarchyItem string, repos []RepoMetrics) *AggregatedRepo {
	agg := &AggregatedRepo{HierarchyItem: hierarchyItem}

	var (
		tally                          health.Tally
		dependabotEnabled              int
		critical, high, medium, low    int64
		linesOfCode                    int64
		locReported                    bool
		coverage, bugs, smells         mean
		security, reliability, sqale   []health.Rating
	)

	for i := range repos {
		r := &repos[i]
		agg.Size += r.Size
		tally.Add(r.OverallHealth())

		if d := r.Dependabot; d.Enabled {
			dependabotEnabled++
			critical += int64(d.Critical)
			high += int64(d.High)
			medium += int64(d.Medium)
			low += int64(d.Low)
		}

		s := r.Sonarcloud
		if !s.IsEnabled {
			continue
		}
		if s.LinesOfCode != nil {
			linesOfCode += int64(*s.LinesOfCode)
			locReported = true
		}
		coverage.addFloat(s.CodeCoverage)
		bugs.addInt(s.Bugs)
		smells.addInt(s.CodeSmells)
		security = appendRating(security, s.SecurityRating)
		reliability = appendRating(reliability, s.ReliabilityRating)
		sqale = appendRating(sqale, s.SqaleRating)
	}

	if dependabotEnabled > 0 {
		agg.CriticalDependabot = CountOf(critical)
		agg.HighDependabot = CountOf(high)
		agg.MediumDependabot = CountOf(medium)
		agg.LowDependabot = CountOf(low)
	}
	if len(repos) > 0 {
		agg.ProportionDependabotEnabled = float64(dependabotEnabled) / float64(len(repos))
	}
	if locReported {
		agg.TotalLinesOfCode = CountOf(linesOfCode)
	}

	agg.AverageCodeCoverage = coverage.value()
	agg.AverageBugs = bugs.value()
	agg.AverageCodeSmells = smells.value()
	agg.AverageSecurityRating = averageRating(security)
	agg.AverageReliabilityRating = averageRating(reliability)
	agg.AverageSqaleRating = averageRating(sqale)

	agg.ProportionGreenRepos, agg.ProportionAmberRepos, agg.ProportionRedRepos = tally.Proportions()
	agg.OverallServiceHealth = tally.Overall()
	return agg
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) addFloat(v *float64) {
	if v != nil {
		m.sum += *v
		m.n++
	}
}

func (m *mean) addInt(v *int) {
	if v != nil {
		m.sum += float64(*v)
		m.n++
	}
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

func appendRating(ratings []health.Rating, r *health.Rating) []health.Rating {
	if r == nil {
		return ratings
	}
	return append(ratings, *r)
}

func averageRating(ratings []health.Rating) string {
	avg, ok := health.AverageRating(ratings)
	if !ok {
		return NotAvailable
	}
	return string(avg)
}
