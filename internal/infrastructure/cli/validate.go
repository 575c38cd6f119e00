package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/eemetrics/internal/infrastructure/watch"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

var validateWatch bool

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir>",
	Short: "Validate repo_metrics JSON documents",
	Long: `Validate checks JSON documents against the repo_metrics schema and the
typed document rules. Every schema violation is listed.

Given a directory, every *.json file below it is validated. With --watch
the directory is then watched and changed files are validated again until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()

		if !info.IsDir() {
			if validateWatch {
				return fmt.Errorf("--watch needs a directory")
			}
			doc, err := validateFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s is valid (overall health %s)\n", doc.FullName, statusText(out, doc.OverallHealth()))
			return nil
		}

		files, err := documentFiles(args[0])
		if err != nil {
			return err
		}
		invalid := reportFiles(out, files)

		if !validateWatch {
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d documents invalid", metrics.ErrValidation, invalid, len(files))
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchDocuments(ctx, out, args[0])
	},
}

func validateFile(path string) (*metrics.RepoMetrics, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return metrics.ValidateRepoMetricsJSON(data)
}

// documentFiles lists the files below root that watch.DocumentFilter accepts.
func documentFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && watch.DocumentFilter.Match(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// reportFiles validates each file, prints one line per file and returns
// the number of invalid documents.
func reportFiles(out io.Writer, files []string) int {
	invalid := 0
	for _, path := range files {
		doc, err := validateFile(path)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s: invalid: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok (%s, %s)\n", path, doc.FullName, statusText(out, doc.OverallHealth()))
	}
	return invalid
}

func watchDocuments(ctx context.Context, out io.Writer, root string) error {
	w, err := watch.New(func(batch []watch.Change) {
		var changed []string
		for _, c := range batch {
			if c.Removed {
				fmt.Fprintf(out, "%s: removed\n", c.Path)
				continue
			}
			changed = append(changed, c.Path)
		}
		reportFiles(out, changed)
	})
	if err != nil {
		return err
	}
	if err := w.Add(root); err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s for changes...\n", root)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "keep validating changed files in a directory")
	RootCmd.AddCommand(validateCmd)
}
