package health

// Weights applied to open Dependabot findings by severity.
const (
	WeightCritical = 100
	WeightHigh     = 10
	WeightMedium   = 5
	WeightLow      = 1
)

// Dependabot point thresholds. Points at or below DependabotGreenMax are
// Green; points at or above DependabotRedMin are Red.
const (
	DependabotGreenMax = 10
	DependabotRedMin   = 100
)

// Code coverage thresholds, in percent.
const (
	CoverageGreenMin = 80.0
	CoverageAmberMin = 50.0
)

// complianceByCount maps the number of enforced rules to a status.
var complianceByCount = map[int]Status{
	0: Red,
	1: Red,
	2: Amber,
	3: Green,
}

// BranchProtectionCompliance scores the three tracked branch protection
// rules. Stale approval dismissal and conversation resolution are recorded
// alongside but do not count.
func BranchProtectionCompliance(pullRequestRequired, approvalsRequired, signaturesRequired bool) Status {
	count := 0
	for _, enforced := range []bool{pullRequestRequired, approvalsRequired, signaturesRequired} {
		if enforced {
			count++
		}
	}
	return complianceByCount[count]
}

// DependabotPoints is the severity-weighted sum of open findings.
func DependabotPoints(critical, high, medium, low int) int {
	return critical*WeightCritical + high*WeightHigh + medium*WeightMedium + low*WeightLow
}

// DependabotScore scores open Dependabot findings. Disabled is Grey.
func DependabotScore(enabled bool, critical, high, medium, low int) Status {
	if !enabled {
		return Grey
	}
	points := DependabotPoints(critical, high, medium, low)
	switch {
	case points <= DependabotGreenMax:
		return Green
	case points < DependabotRedMin:
		return Amber
	default:
		return Red
	}
}

// CodeCoverageScore scores a coverage percentage. Disabled or unknown
// coverage is Grey.
func CodeCoverageScore(enabled bool, coverage *float64) Status {
	if !enabled || coverage == nil {
		return Grey
	}
	switch c := *coverage; {
	case c >= CoverageGreenMin:
		return Green
	case c >= CoverageAmberMin:
		return Amber
	default:
		return Red
	}
}
