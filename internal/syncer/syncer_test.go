package syncer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/featuresync/internal/logging"
	"github.com/fyrsmithlabs/featuresync/internal/requirement"
	"github.com/fyrsmithlabs/featuresync/internal/sanitize"
	"github.com/fyrsmithlabs/featuresync/internal/telemetry"
)

// fakeCreator hands out ids from ids in call order and fails for the
// identities in fail.
type fakeCreator struct {
	ids      []string
	fail     map[string]error
	requests []*requirement.CreateRequest
}

func (f *fakeCreator) Create(_ context.Context, req *requirement.CreateRequest) (string, error) {
	f.requests = append(f.requests, req)
	if err, ok := f.fail[req.Rationale]; ok {
		return "", err
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

// memFS is an in-memory Reader and Writer.
type memFS struct {
	files    map[string]string
	writeErr error
	writes   []string
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	text, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(text), nil
}

func (m *memFS) WriteFile(path string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, path)
	m.files[path] = string(data)
	return nil
}

type fakeRedactor struct{ secret string }

func (r fakeRedactor) Redact(s string) (string, int, error) {
	n := strings.Count(s, r.secret)
	return strings.ReplaceAll(s, r.secret, "[REDACTED]"), n, nil
}

const twoRequirements = `@ADS-1
Feature: First
Scenario: one
  Given a
@ADS-2
Feature: Second
`

func newTestSyncer(t *testing.T, creator Creator, opts ...Option) *Syncer {
	t.Helper()
	s, err := New(creator, opts...)
	require.NoError(t, err)
	return s
}

func TestSyncDocument_CreatesInOrder(t *testing.T) {
	creator := &fakeCreator{ids: []string{"100", "200"}}
	s := newTestSyncer(t, creator)

	res := s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: twoRequirements})

	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.Created)
	assert.Empty(t, res.Failures)
	assert.Equal(t, "@ADS-1\n@CB-100\nFeature: First\nScenario: one\n  Given a\n@ADS-2\n@CB-200\nFeature: Second\n", res.Text)

	require.Len(t, creator.requests, 2)
	assert.Equal(t, "First", creator.requests[0].Name)
	assert.Equal(t, "Scenario: one\nGiven a", creator.requests[0].AcceptanceCriteria)
	assert.Equal(t, "Second", creator.requests[1].Name)
}

func TestSyncDocument_SkipsLinked(t *testing.T) {
	creator := &fakeCreator{}
	s := newTestSyncer(t, creator)

	text := "@ADS-1\n@CB-9\nFeature: Done\n"
	res := s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: text})

	assert.False(t, res.Changed)
	assert.Equal(t, text, res.Text)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, creator.requests)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().RequirementsTotal.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().DocumentsTotal.WithLabelValues(OutcomeUnchanged)))
}

func TestSyncDocument_FailureIsolation(t *testing.T) {
	logger := logging.NewTestLogger()
	boom := errors.New("tracker unavailable")
	creator := &fakeCreator{
		ids:  []string{"300"},
		fail: map[string]error{"@ADS-1": boom},
	}
	s := newTestSyncer(t, creator, WithLogger(logger.Logger))

	res := s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: twoRequirements})

	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, OpCreate, res.Failures[0].Op)
	assert.Equal(t, "@ADS-1", res.Failures[0].PrimaryID)
	assert.ErrorIs(t, res.Failures[0], boom)

	assert.NotContains(t, res.Text, "@CB-100")
	assert.Contains(t, res.Text, "@ADS-2\n@CB-300\n")

	logger.AssertLogged(t, zapcore.ErrorLevel, "requirement sync failed")
	logger.AssertField(t, "requirement sync failed", "requirement.id", "@ADS-1")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().RequirementsTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().RequirementsTotal.WithLabelValues(OutcomeCreated)))
}

func TestSyncDocument_DuplicateIdentity(t *testing.T) {
	logger := logging.NewTestLogger()
	creator := &fakeCreator{ids: []string{"1", "2"}}
	s := newTestSyncer(t, creator, WithLogger(logger.Logger))

	res := s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: "@ADS-1\nFeature: A\n@ADS-1\nFeature: B\n"})

	assert.Equal(t, 2, res.Created)
	assert.Len(t, creator.requests, 2)
	// Both links land under the first occurrence; item 1 is orphaned and the
	// second block stays unlinked.
	assert.Equal(t, "@ADS-1\n@CB-2\nFeature: A\n@ADS-1\nFeature: B\n", res.Text)
	logger.AssertLogged(t, zapcore.WarnLevel, "identity tag repeated")
	logger.AssertLogged(t, zapcore.WarnLevel, "will be overwritten")
}

func TestSyncDocument_DryRun(t *testing.T) {
	logger := logging.NewTestLogger()
	s := newTestSyncer(t, nil, WithDryRun(true), WithLogger(logger.Logger))

	res := s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: twoRequirements})

	assert.False(t, res.Changed)
	assert.Equal(t, twoRequirements, res.Text)
	assert.Equal(t, 2, res.Planned)
	logger.AssertLogged(t, zapcore.InfoLevel, "would create requirement")
}

func TestSyncDocument_Redacts(t *testing.T) {
	logger := logging.NewTestLogger()
	creator := &fakeCreator{ids: []string{"5"}}
	s := newTestSyncer(t, creator,
		WithRedactor(fakeRedactor{secret: "hunter2"}),
		WithLogger(logger.Logger),
	)

	text := "@ADS-1\nFeature: Login\nUses password hunter2\nScenario: s\n  Given password hunter2\n"
	s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: text})

	require.Len(t, creator.requests, 1)
	assert.NotContains(t, creator.requests[0].Description, "hunter2")
	assert.NotContains(t, creator.requests[0].AcceptanceCriteria, "hunter2")
	assert.Equal(t, "@ADS-1", creator.requests[0].Rationale)
	logger.AssertField(t, "secrets redacted", "count", int64(2))
}

func TestSyncDocument_Spans(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	creator := &fakeCreator{ids: []string{"1"}, fail: map[string]error{"@ADS-2": errors.New("nope")}}
	s := newTestSyncer(t, creator, WithTracer(tel.Tracer("syncer")))

	s.SyncDocument(context.Background(), Document{Path: "a.feature", Text: twoRequirements})

	tel.AssertSpanExists(t, "syncer.document")
	tel.AssertSpanAttribute(t, "syncer.document", "document.path", "a.feature")
	tel.AssertSpanAttribute(t, "syncer.document", "document.created", int64(1))
	assert.Len(t, tel.SpansByName("syncer.requirement"), 2)
}

func TestRun(t *testing.T) {
	fsys := &memFS{files: map[string]string{
		"new.feature":    twoRequirements,
		"linked.feature": "@ADS-9\n@CB-9\n",
	}}
	logger := logging.NewTestLogger()
	creator := &fakeCreator{ids: []string{"10", "20"}}
	s := newTestSyncer(t, creator, WithFS(fsys, fsys), WithLogger(logger.Logger))

	batch := s.Run(context.Background(), []string{"missing.feature", "new.feature", "linked.feature"})

	assert.Equal(t, []string{"new.feature"}, batch.Changed)
	assert.Equal(t, []string{"new.feature"}, fsys.writes)
	assert.Contains(t, fsys.files["new.feature"], "@CB-10")
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, OpRead, batch.Errors[0].Op)
	assert.ErrorIs(t, batch.Errors[0], fs.ErrNotExist)
	assert.Len(t, batch.Documents, 2)

	created, skipped, failed := batch.Totals()
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, skipped)
	assert.Zero(t, failed)

	logger.AssertLogged(t, zapcore.WarnLevel, "skipping unreadable document")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().DocumentsTotal.WithLabelValues(OutcomeUnreadable)))
}

func TestRun_WriteFailureNotReported(t *testing.T) {
	fsys := &memFS{
		files:    map[string]string{"a.feature": twoRequirements},
		writeErr: errors.New("read-only file system"),
	}
	s := newTestSyncer(t, &fakeCreator{ids: []string{"1", "2"}}, WithFS(fsys, fsys))

	batch := s.Run(context.Background(), []string{"a.feature"})

	assert.Empty(t, batch.Changed)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, OpWrite, batch.Errors[0].Op)
}

func TestRun_DryRunDoesNotWrite(t *testing.T) {
	fsys := &memFS{files: map[string]string{"a.feature": twoRequirements}}
	s := newTestSyncer(t, nil, WithDryRun(true), WithFS(fsys, fsys))

	batch := s.Run(context.Background(), []string{"a.feature"})

	assert.Empty(t, batch.Changed)
	assert.Empty(t, fsys.writes)
}

func TestRun_Cancelled(t *testing.T) {
	fsys := &memFS{files: map[string]string{"a.feature": twoRequirements}}
	creator := &fakeCreator{ids: []string{"1", "2"}}
	s := newTestSyncer(t, creator, WithFS(fsys, fsys))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch := s.Run(ctx, []string{"a.feature"})

	assert.Empty(t, batch.Documents)
	assert.Empty(t, creator.requests)
}

func TestNew_RequiresCreator(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestDirFS_WriteKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.feature")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o640))

	fsys := DirFS{Root: dir}
	require.NoError(t, fsys.WriteFile("a.feature", []byte("new")))

	data, err := fsys.ReadFile("a.feature")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordRequirement(OutcomeCreated)
	m.RecordDocument(OutcomeChanged)

	path := filepath.Join(t.TempDir(), "featuresync.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `featuresync_requirements_total{outcome="created"} 1`)
	assert.Contains(t, string(data), `featuresync_documents_total{outcome="changed"} 1`)
}

func TestDirFS_RejectsEscapingPaths(t *testing.T) {
	fsys := DirFS{Root: t.TempDir()}

	_, err := fsys.ReadFile("../outside.feature")
	assert.ErrorIs(t, err, sanitize.ErrPathTraversal)

	err = fsys.WriteFile("/etc/passwd", []byte("x"))
	assert.ErrorIs(t, err, sanitize.ErrAbsolutePath)
}
