package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/eemetrics/internal/infrastructure/config"
)

// resetFlags restores every package-level flag variable, since cobra keeps
// parsed values between executions of RootCmd.
func resetFlags() {
	configPath, logLevel = "", ""
	bpPullRequest, bpApprovals, bpSignatures = false, false, false
	depDisabled, depCritical, depHigh, depMedium, depLow = false, 0, 0, 0, 0
	covDisabled = false
	githubOrg, teamsAll, contributorsSince, protectionBranch = "", false, 0, ""
	sonarOrg, createGroupDryRun = "", false
	collectOrg, collectSince, collectProjectKey, collectBranch = "", 0, "", ""
	collectAll, collectSkipArchived, collectAggregate = false, true, ""
	configForce, configInitOrg, configInitStore = false, "", ""
	validateWatch = false
}

// runCLI executes RootCmd with args and returns everything written to its
// output streams.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := Execute()
	return out.String(), err
}

// setEnv clears every variable the config layer reads and applies vars.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, key := range []string{config.EnvGitHubToken, config.EnvSonarcloudToken, config.EnvMongoURI} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvLogLevel, "error")
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

// writeConfig writes cfg to a temp eemetrics.yaml and returns its path.
// A file store under the same directory is used.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	dir := t.TempDir()
	if cfg.Store.Kind == "" {
		cfg.Store = config.StoreConfig{Kind: config.StoreFile, Path: dir}
	}
	path := filepath.Join(dir, config.DefaultFile)
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
