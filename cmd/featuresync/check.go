package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/featuresync/internal/changeset"
	"github.com/fyrsmithlabs/featuresync/internal/ignore"
	"github.com/fyrsmithlabs/featuresync/internal/lint"
)

type checkOptions struct {
	*rootOptions
	watch   bool
	verbose bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "check [dir]...",
		Short: "Lint feature files for duplicate ids and incomplete requirements",
		Long: `Check parses every feature file under the given directories (default the
work dir) and reports repeated identity tags, requirements without a title or
scenarios, and @CB- tags that sit above any identity tag.

It exits non-zero when an identity tag is repeated, unless --watch is set.

Examples:
  featuresync check
  featuresync check features/ --verbose
  featuresync check --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run whenever a feature file changes")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "list informational findings too")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, opts *checkOptions, dirs []string) error {
	a, err := newApp(ctx, opts.rootOptions)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if len(dirs) == 0 {
		dirs = []string{a.cfg.Sync.WorkDir}
	}
	minSeverity := lint.SeverityWarning
	if opts.verbose {
		minSeverity = lint.SeverityInfo
	}

	check := func(ctx context.Context) (lint.Report, error) {
		docs, err := loadDocuments(ctx, dirs, a.cfg.GitHub.Include)
		if err != nil {
			return lint.Report{}, err
		}
		report := lint.Check(docs)
		fmt.Fprint(out, lint.Render(report, minSeverity))
		return report, nil
	}

	report, err := check(ctx)
	if err != nil {
		return err
	}

	if !opts.watch {
		if n := report.Count(lint.RuleDuplicateID); n > 0 {
			return fmt.Errorf("%d repeated identity tag(s)", n)
		}
		return nil
	}

	w, err := lint.NewWatcher(dirs, lint.DefaultDebounce, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info(ctx, "watching for feature file changes", zap.Strings("dirs", dirs))
	return w.Run(ctx, func(ctx context.Context) {
		if _, err := check(ctx); err != nil {
			a.logger.Warn(ctx, "check failed", zap.Error(err))
		}
	})
}

// loadDocuments reads every feature file under dirs. Paths are reported
// joined to their directory so findings point at real files.
func loadDocuments(ctx context.Context, dirs []string, include []string) ([]lint.Document, error) {
	var docs []lint.Document
	for _, dir := range dirs {
		paths, err := localFeatureFiles(ctx, dir, include)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			full := filepath.Join(dir, filepath.FromSlash(p))
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", full, err)
			}
			docs = append(docs, lint.Document{Path: full, Text: string(data)})
		}
	}
	return docs, nil
}

// localFeatureFiles lists the feature files under dir, skipping anything its
// .gitignore or .featuresyncignore excludes.
func localFeatureFiles(ctx context.Context, dir string, include []string) ([]string, error) {
	exclude, err := ignore.NewParser().Patterns(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ignore files in %s: %w", dir, err)
	}
	paths, err := changeset.NewLocalProvider(dir, include).Exclude(exclude...).ChangedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feature files in %s: %w", dir, err)
	}
	return paths, nil
}
