package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/featuresync/internal/logging"
	"github.com/fyrsmithlabs/featuresync/internal/requirement"
)

// Creator creates a tracker item and returns its id.
type Creator interface {
	Create(ctx context.Context, req *requirement.CreateRequest) (string, error)
}

// Redactor scrubs secrets from text, returning the scrubbed text and the
// number of secrets replaced.
type Redactor interface {
	Redact(s string) (string, int, error)
}

// Document is a feature file and its current text.
type Document struct {
	Path string
	Text string
}

// DocumentResult is the outcome of syncing one document.
type DocumentResult struct {
	Path string
	// Text is the document after annotation. Equal to the input when
	// Changed is false.
	Text    string
	Changed bool

	Created  int
	Skipped  int
	Planned  int
	Failures []*SyncError
}

// BatchResult is the outcome of Run.
type BatchResult struct {
	Documents []DocumentResult
	// Changed lists, in input order, the paths whose text changed and was
	// written back.
	Changed []string
	// Errors holds document-level failures: unreadable and unwritable files.
	Errors []*SyncError
}

// Failures returns every requirement-level failure in the batch.
func (b *BatchResult) Failures() []*SyncError {
	var out []*SyncError
	for _, d := range b.Documents {
		out = append(out, d.Failures...)
	}
	return out
}

// Totals sums the per-document counters.
func (b *BatchResult) Totals() (created, skipped, failed int) {
	for _, d := range b.Documents {
		created += d.Created
		skipped += d.Skipped
		failed += len(d.Failures)
	}
	return created, skipped, failed
}

// Syncer runs documents through decide, create and annotate.
type Syncer struct {
	creator  Creator
	redactor Redactor
	reader   Reader
	writer   Writer
	decide   DecideOptions
	dryRun   bool

	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRedactor scrubs descriptions and acceptance criteria before create.
func WithRedactor(r Redactor) Option {
	return func(s *Syncer) { s.redactor = r }
}

// WithFS sets where Run reads and writes documents. Defaults to the current
// directory.
func WithFS(r Reader, w Writer) Option {
	return func(s *Syncer) {
		s.reader = r
		s.writer = w
	}
}

// WithDecideOptions sets the safety and security tag names.
func WithDecideOptions(o DecideOptions) Option {
	return func(s *Syncer) { s.decide = o }
}

// WithDryRun decides and logs without creating items or writing files.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) { s.dryRun = dryRun }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithTracer sets the tracer used for document and requirement spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Syncer) { s.tracer = t }
}

// WithMetrics sets the Prometheus collectors to record into.
func WithMetrics(m *Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// New creates a Syncer. creator may be nil only in dry-run mode.
func New(creator Creator, opts ...Option) (*Syncer, error) {
	fs := DirFS{}
	s := &Syncer{
		creator: creator,
		reader:  fs,
		writer:  fs,
		decide:  DefaultDecideOptions(),
		logger:  logging.NewNop(),
		tracer:  noop.NewTracerProvider().Tracer(""),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.creator == nil && !s.dryRun {
		return nil, errors.New("syncer: creator is required unless dry run is enabled")
	}
	return s, nil
}

// Metrics returns the collectors this Syncer records into.
func (s *Syncer) Metrics() *Metrics {
	return s.metrics
}

// Run syncs every path in order. Unreadable files are skipped with a warning.
// Changed documents are written back unless in dry-run mode.
func (s *Syncer) Run(ctx context.Context, paths []string) *BatchResult {
	batch := &BatchResult{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			s.logger.Warn(ctx, "batch interrupted", zap.Int("remaining", len(paths)-len(batch.Documents)-len(batch.Errors)), zap.Error(err))
			break
		}

		docCtx := logging.WithDocument(ctx, path)
		data, err := s.reader.ReadFile(path)
		if err != nil {
			s.logger.Warn(docCtx, "skipping unreadable document", zap.Error(err))
			s.metrics.RecordDocument(OutcomeUnreadable)
			batch.Errors = append(batch.Errors, &SyncError{Op: OpRead, Path: path, Err: err})
			continue
		}

		res := s.SyncDocument(ctx, Document{Path: path, Text: string(data)})
		batch.Documents = append(batch.Documents, res)
		if !res.Changed || s.dryRun {
			continue
		}

		if err := s.writer.WriteFile(path, []byte(res.Text)); err != nil {
			// The items exist in the tracker but their links are lost. A
			// rerun creates them again unless the tags are added by hand.
			s.logger.Error(docCtx, "failed to write annotated document", zap.Error(err))
			batch.Errors = append(batch.Errors, &SyncError{Op: OpWrite, Path: path, Err: err})
			continue
		}
		batch.Changed = append(batch.Changed, path)
	}

	return batch
}

// SyncDocument parses doc, then decides, creates and annotates each
// requirement in document order. Requirement failures are recorded and do
// not stop the remaining requirements.
func (s *Syncer) SyncDocument(ctx context.Context, doc Document) DocumentResult {
	ctx = logging.WithDocument(ctx, doc.Path)
	ctx, span := s.tracer.Start(ctx, "syncer.document",
		trace.WithAttributes(attribute.String("document.path", doc.Path)))
	defer span.End()

	res := DocumentResult{Path: doc.Path, Text: doc.Text}
	tasks := s.plan(ctx, doc)
	span.SetAttributes(attribute.Int("document.requirements", len(tasks)))

	for _, t := range tasks {
		s.runTask(ctx, doc.Path, t, &res)
	}

	res.Changed = res.Text != doc.Text
	outcome := OutcomeUnchanged
	if res.Changed {
		outcome = OutcomeChanged
	}
	s.metrics.RecordDocument(outcome)

	span.SetAttributes(
		attribute.Int("document.created", res.Created),
		attribute.Int("document.skipped", res.Skipped),
		attribute.Int("document.failed", len(res.Failures)),
	)
	if len(res.Failures) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d requirement(s) failed", len(res.Failures)))
	}

	s.logger.Info(ctx, "document processed",
		zap.Int("requirements", len(tasks)),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failures)),
		zap.Bool("changed", res.Changed),
	)
	return res
}

// task is one requirement's step in a document's ordered work list.
type task struct {
	req      requirement.Requirement
	decision Decision
}

// plan parses the document and decides every requirement up front. Repeated
// identity tags are kept as separate tasks and logged. Annotate always finds
// the first occurrence, so each later create overwrites the link written by
// the earlier one and the later blocks stay unlinked.
func (s *Syncer) plan(ctx context.Context, doc Document) []task {
	reqs := requirement.Parse(doc.Text)
	tasks := make([]task, 0, len(reqs))
	seen := make(map[string]int, len(reqs))

	for _, r := range reqs {
		if first, dup := seen[r.PrimaryID]; dup {
			s.logger.Warn(logging.WithRequirement(ctx, r.PrimaryID), "identity tag repeated in document, the link under its first occurrence will be overwritten",
				zap.Int("line", r.LineNumber),
				zap.Int("first_line", first),
			)
		} else {
			seen[r.PrimaryID] = r.LineNumber
		}
		tasks = append(tasks, task{req: r, decision: Decide(r, s.decide)})
	}
	return tasks
}

func (s *Syncer) runTask(ctx context.Context, path string, t task, res *DocumentResult) {
	r := t.req
	ctx = logging.WithRequirement(ctx, r.PrimaryID)
	ctx, span := s.tracer.Start(ctx, "syncer.requirement", trace.WithAttributes(
		attribute.String("requirement.id", r.PrimaryID),
		attribute.Int("requirement.line", r.LineNumber),
		attribute.String("requirement.decision", t.decision.Kind.String()),
	))
	defer span.End()

	if t.decision.Kind == DecisionSkip {
		res.Skipped++
		s.metrics.RecordRequirement(OutcomeSkipped)
		s.logger.Debug(ctx, "requirement already linked", zap.String("remote_id", r.RemoteID))
		return
	}

	req := t.decision.Request
	if s.redactor != nil {
		redacted, err := s.redact(ctx, req)
		if err != nil {
			s.fail(ctx, span, res, &SyncError{Op: OpRedact, Path: path, PrimaryID: r.PrimaryID, Err: err})
			return
		}
		req = redacted
	}

	if s.dryRun {
		res.Planned++
		s.metrics.RecordRequirement(OutcomePlanned)
		s.logger.Info(ctx, "would create requirement",
			zap.String("name", req.Name),
			zap.Bool("safety", req.Safety),
			zap.Bool("security", req.Security),
		)
		return
	}

	start := time.Now()
	remoteID, err := s.creator.Create(ctx, req)
	s.metrics.ObserveCreate(time.Since(start).Seconds())
	if err != nil {
		s.fail(ctx, span, res, &SyncError{Op: OpCreate, Path: path, PrimaryID: r.PrimaryID, Err: err})
		return
	}

	res.Text = requirement.Annotate(res.Text, r.PrimaryID, remoteID)
	res.Created++
	s.metrics.RecordRequirement(OutcomeCreated)
	span.SetAttributes(attribute.String("requirement.remote_id", remoteID))
	s.logger.Info(ctx, "requirement created", zap.String("remote_id", remoteID))
}

// redact returns a copy of req with secrets removed from its free text.
func (s *Syncer) redact(ctx context.Context, req *requirement.CreateRequest) (*requirement.CreateRequest, error) {
	out := *req
	var total int

	for _, field := range []*string{&out.Name, &out.Description, &out.AcceptanceCriteria} {
		clean, n, err := s.redactor.Redact(*field)
		if err != nil {
			return nil, err
		}
		*field = clean
		total += n
	}

	if total > 0 {
		s.logger.Warn(ctx, "secrets redacted from requirement", zap.Int("count", total))
	}
	return &out, nil
}

func (s *Syncer) fail(ctx context.Context, span trace.Span, res *DocumentResult, err *SyncError) {
	res.Failures = append(res.Failures, err)
	s.metrics.RecordRequirement(OutcomeFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Op+" failed")
	s.logger.Error(ctx, "requirement sync failed", zap.String("op", err.Op), zap.Error(err.Err))
}
