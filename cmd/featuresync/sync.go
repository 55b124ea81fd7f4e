package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/featuresync/internal/changeset"
	"github.com/fyrsmithlabs/featuresync/internal/codebeamer"
	"github.com/fyrsmithlabs/featuresync/internal/config"
	"github.com/fyrsmithlabs/featuresync/internal/logging"
	"github.com/fyrsmithlabs/featuresync/internal/syncer"
	"github.com/fyrsmithlabs/featuresync/pkg/git"
	"github.com/fyrsmithlabs/featuresync/pkg/secrets"
)

type syncOptions struct {
	*rootOptions
	pr     int
	repo   string
	all    bool
	dryRun bool
	noPush bool
}

func newSyncCmd(root *rootOptions) *cobra.Command {
	opts := &syncOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create tracker items for unlinked requirements and tag them",
		Long: `Sync lists the feature files a pull request adds or modifies, creates a
Codebeamer item for every requirement without a @CB- tag, writes the tags
back, then commits and pushes the edited files to the PR branch.

The pull request comes from the GitHub Actions event file unless --pr is
given. Failures for single requirements or files are logged and do not fail
the run; only failing to work out which files changed does.

Examples:
  # In a pull_request workflow
  featuresync sync

  # A specific PR from a workstation, without pushing
  featuresync sync --repo acme/machines --pr 42 --no-push

  # Every feature file in the work dir, showing what would be created
  featuresync sync --all --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.pr, "pr", 0, "pull request number (default from the event file)")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "repository as owner/name (default GITHUB_REPOSITORY)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "sync every matching file in the work dir instead of a PR's changes")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "decide and log without creating items or writing files")
	cmd.Flags().BoolVar(&opts.noPush, "no-push", false, "commit annotated files but do not push")
	cmd.MarkFlagsMutuallyExclusive("all", "pr")
	return cmd
}

func runSync(ctx context.Context, opts *syncOptions) error {
	a, err := newApp(ctx, opts.rootOptions)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	cfg := a.cfg
	if opts.dryRun {
		cfg.Sync.DryRun = true
	}
	if opts.noPush {
		cfg.Git.Push = false
	}
	if opts.repo != "" {
		cfg.GitHub.Repository = opts.repo
	}

	ctx = logging.WithRunID(ctx, logging.NewRunID())
	ctx = logging.WithLogger(ctx, a.logger)
	ctx, span := a.tel.Tracer("featuresync").Start(ctx, "featuresync.sync")
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error(ctx, "sync aborted", zap.Error(err))
		return err
	}

	paths, pr, err := listChanged(ctx, a, opts)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.Int("sync.documents", len(paths)))
	if len(paths) == 0 {
		a.logger.Info(ctx, "no changed feature files")
		return nil
	}

	s, err := newSyncer(ctx, a)
	if err != nil {
		return fail(err)
	}

	batch := s.Run(ctx, paths)
	created, skipped, failed := batch.Totals()
	span.SetAttributes(
		attribute.Int("sync.created", created),
		attribute.Int("sync.skipped", skipped),
		attribute.Int("sync.failed", failed),
	)
	a.logger.Info(ctx, "sync finished",
		zap.Int("documents", len(batch.Documents)),
		zap.Int("unreadable", len(batch.Errors)),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Strings("changed", batch.Changed),
	)

	if !cfg.Sync.DryRun {
		publish(ctx, a, pr, batch.Changed)
	}

	if cfg.Metrics.Textfile != "" {
		if err := s.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
			a.logger.Warn(ctx, "failed to write metrics", zap.Error(err))
		}
	}
	return nil
}

// listChanged resolves the batch and the feature files in it. Any error here
// is fatal: without a change set there is nothing to do.
func listChanged(ctx context.Context, a *app, opts *syncOptions) ([]string, *changeset.PullRequest, error) {
	cfg := a.cfg

	if opts.all {
		paths, err := localFeatureFiles(ctx, cfg.Sync.WorkDir, cfg.GitHub.Include)
		if err != nil {
			return nil, nil, err
		}
		return paths, nil, nil
	}

	pr, err := resolvePullRequest(cfg.GitHub, opts.pr)
	if err != nil {
		return nil, nil, fmt.Errorf("determining pull request: %w", err)
	}

	client, err := changeset.NewGitHubClient(ctx, cfg.GitHub.Token, cfg.GitHub.APIURL)
	if err != nil {
		return nil, nil, err
	}
	provider := changeset.NewGitHubProvider(client, cfg.GitHub.Include, changeset.DefaultRetryConfig(), a.logger)

	paths, err := provider.ChangedFiles(ctx, *pr)
	if err != nil {
		return nil, nil, fmt.Errorf("listing changed files of %s: %w", pr, err)
	}
	a.logger.Info(ctx, "changed feature files listed", zap.Stringer("pull_request", pr), zap.Int("count", len(paths)))
	return paths, pr, nil
}

// resolvePullRequest takes the PR from explicit flags when a number is given,
// otherwise from the Actions event payload.
func resolvePullRequest(gh config.GitHubConfig, number int) (*changeset.PullRequest, error) {
	if number == 0 {
		return changeset.LoadEvent(gh.EventPath, gh.EventName)
	}
	if gh.Repository == "" {
		return nil, errors.New("--repo or GITHUB_REPOSITORY is required with --pr")
	}

	owner, repo, err := gh.OwnerRepo()
	if err != nil {
		return nil, err
	}
	pr := &changeset.PullRequest{Owner: owner, Repo: repo, Number: number, HeadRef: gh.HeadRef}
	if err := pr.Validate(); err != nil {
		return nil, err
	}
	return pr, nil
}

func newSyncer(ctx context.Context, a *app) (*syncer.Syncer, error) {
	cfg := a.cfg
	opts := []syncer.Option{
		syncer.WithFS(syncer.DirFS{Root: cfg.Sync.WorkDir}, syncer.DirFS{Root: cfg.Sync.WorkDir}),
		syncer.WithDecideOptions(syncer.DecideOptions{SafetyTag: cfg.Sync.SafetyTag, SecurityTag: cfg.Sync.SecurityTag}),
		syncer.WithDryRun(cfg.Sync.DryRun),
		syncer.WithLogger(a.logger),
		syncer.WithTracer(a.tel.Tracer("featuresync/syncer")),
	}

	if cfg.Secrets.Redact {
		detector, err := secrets.NewDetector(cfg.Sync.WorkDir, cfg.Secrets.AllowlistPath)
		if err != nil {
			return nil, fmt.Errorf("loading secret detector: %w", err)
		}
		opts = append(opts, syncer.WithRedactor(detector))
	}

	if cfg.Sync.DryRun {
		a.logger.Info(ctx, "dry run: no items will be created and no files written")
		return syncer.New(nil, opts...)
	}

	client, err := codebeamer.New(cfg.Codebeamer, codebeamer.WithMeter(a.tel.Meter("featuresync/codebeamer")))
	if err != nil {
		return nil, fmt.Errorf("codebeamer client: %w", err)
	}
	a.logger.Debug(ctx, "codebeamer client ready",
		zap.String("api_url", cfg.Codebeamer.APIURL),
		zap.Int("tracker_id", cfg.Codebeamer.TrackerID),
		logging.Secret("password", cfg.Codebeamer.Password),
	)
	return syncer.New(client, opts...)
}

// publish commits and pushes the annotated files. It is best effort: the
// items already exist, so a failure is logged and the run still succeeds.
func publish(ctx context.Context, a *app, pr *changeset.PullRequest, paths []string) {
	if len(paths) == 0 {
		return
	}
	cfg := a.cfg

	branch := cfg.GitHub.Branch()
	if branch == "" && pr != nil {
		branch = pr.HeadRef
	}
	if branch == "" {
		detected, err := git.DetectBranch(cfg.Sync.WorkDir)
		if err != nil {
			a.logger.Debug(ctx, "no branch detected from HEAD", zap.Error(err))
		}
		branch = detected
	}

	p := git.NewPublisher(cfg.Sync.WorkDir, git.PublishOptions{
		Remote:      cfg.Git.Remote,
		Branch:      branch,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
		Token:       cfg.GitHub.Token.Value(),
		Push:        cfg.Git.Push,
	})

	res, err := p.Publish(ctx, paths, cfg.Git.CommitMessage)
	if err != nil {
		a.logger.Error(ctx, "failed to publish annotated files",
			zap.String("commit", res.Commit),
			zap.String("branch", branch),
			zap.Error(err),
		)
		return
	}
	a.logger.Info(ctx, "annotated files published",
		zap.String("commit", res.Commit),
		zap.String("branch", res.Branch),
		zap.Bool("pushed", res.Pushed),
	)
}
