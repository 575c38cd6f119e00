package cli

import (
	"strings"
	"testing"
)

func TestScoreCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all rules", []string{"score", "branch-protection", "--pull-request", "--approvals", "--signatures"}, []string{"Branch protection: Green"}},
		{"two rules", []string{"score", "branch-protection", "--pull-request", "--signatures"}, []string{"Branch protection: Amber"}},
		{"one rule", []string{"score", "branch-protection", "--approvals"}, []string{"Branch protection: Red"}},
		{"no alerts", []string{"score", "dependabot"}, []string{"Dependabot: Green", "Points: 0"}},
		{"ten points", []string{"score", "dependabot", "--high", "1"}, []string{"Dependabot: Green", "Points: 10"}},
		{"amber", []string{"score", "dependabot", "--high", "2", "--low", "3"}, []string{"Dependabot: Amber", "Points: 23"}},
		{"critical", []string{"score", "dependabot", "--critical", "1"}, []string{"Dependabot: Red", "Points: 100"}},
		{"dependabot disabled", []string{"score", "dependabot", "--disabled"}, []string{"Dependabot: Grey"}},
		{"coverage green", []string{"score", "coverage", "80"}, []string{"Code coverage: Green"}},
		{"coverage amber", []string{"score", "coverage", "50"}, []string{"Code coverage: Amber"}},
		{"coverage red", []string{"score", "coverage", "49.9"}, []string{"Code coverage: Red"}},
		{"coverage missing", []string{"score", "coverage"}, []string{"Code coverage: Grey"}},
		{"coverage disabled", []string{"score", "coverage", "90", "--disabled"}, []string{"Code coverage: Grey"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestScoreCommands_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative alerts", []string{"score", "dependabot", "--medium", "-1"}},
		{"coverage not a number", []string{"score", "coverage", "lots"}},
		{"coverage above 100", []string{"score", "coverage", "101"}},
		{"coverage below 0", []string{"score", "coverage", "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
