package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/rendering"
	"github.com/jonathan/interview-coach/internal/types"
)

type fakeReports struct {
	interview      *types.Interview
	report         *types.StoredReport
	narrative      string
	narrativeCalls int
}

func (f *fakeReports) Interview(_ context.Context, id string) (*types.Interview, error) {
	if f.interview == nil || f.interview.ID.String() != id {
		return nil, apperr.NotFound("get_interview", "interview", id)
	}
	return f.interview, nil
}

func (f *fakeReports) LatestReport(_ context.Context, id string) (*types.StoredReport, error) {
	if f.report == nil {
		return nil, apperr.NotFound("get_report", "report", id)
	}
	return f.report, nil
}

func (f *fakeReports) Narrative(context.Context, *types.StoredReport) (string, error) {
	f.narrativeCalls++
	return f.narrative, nil
}

type fakeRenderer struct {
	doc *rendering.Document
	err error
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(_ context.Context, doc *rendering.Document) ([]byte, error) {
	f.doc = doc
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + doc.Title), nil
}

func newExportFixture(t *testing.T) (*Service, *fakeReports, *fakeRenderer, *LocalPublisher) {
	t.Helper()
	in := &types.Interview{ID: uuid.New(), Domain: "Data Engineering", InterviewType: "Technical"}
	reports := &fakeReports{
		interview: in,
		report:    &types.StoredReport{ID: uuid.New(), InterviewID: in.ID},
		narrative: "## Interview Overview\r\n\r\nThe candidate was <b>clear</b>.\r\n\r\nStrengths\r\n\r\n• Concise\r\n• Accurate",
	}
	renderer := &fakeRenderer{}
	pub := NewLocalPublisher(t.TempDir(), "http://localhost:8080/", testSigner())
	return NewService(reports, renderer, pub, nil), reports, renderer, pub
}

func TestExport(t *testing.T) {
	svc, reports, renderer, pub := newExportFixture(t)
	id := reports.interview.ID
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	res, err := svc.Export(context.Background(), id.String())
	require.NoError(t, err)

	assert.Equal(t, id, res.InterviewID)
	assert.Equal(t, "interview_report_"+id.String()+".pdf", res.FileName)
	assert.Equal(t, filepath.Join(pub.Dir, res.FileName), res.Path)
	assert.True(t, strings.HasPrefix(res.URL, "http://localhost:8080/downloads/"))
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, "fake", res.Renderer)

	assert.Equal(t, []rendering.Block{
		{Kind: rendering.BlockHeading, Text: "Interview Overview"},
		{Kind: rendering.BlockBody, Text: "The candidate was clear."},
		{Kind: rendering.BlockHeading, Text: "Strengths"},
		{Kind: rendering.BlockBullets, Items: []string{"Concise", "Accurate"}},
	}, res.Blocks)

	require.NotNil(t, renderer.doc)
	assert.Equal(t, ReportTitle, renderer.doc.Title)
	assert.Equal(t, "Data Engineering, Technical interview", renderer.doc.Subtitle)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 Interview Performance Report", string(data))

	token := strings.TrimPrefix(res.URL, "http://localhost:8080/downloads/")
	path, claims, err := pub.Open(token)
	require.NoError(t, err)
	assert.Equal(t, res.Path, path)
	assert.Equal(t, id, claims.InterviewID)
}

func TestExport_MissingReportFailsBeforeNarrative(t *testing.T) {
	svc, reports, renderer, _ := newExportFixture(t)
	reports.report = nil

	_, err := svc.Export(context.Background(), reports.interview.ID.String())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Zero(t, reports.narrativeCalls)
	assert.Nil(t, renderer.doc)
}

func TestExport_RenderFailureIsInternal(t *testing.T) {
	svc, reports, renderer, pub := newExportFixture(t)
	renderer.err = errors.New("pdflatex missing")

	_, err := svc.Export(context.Background(), reports.interview.ID.String())
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	entries, err := os.ReadDir(pub.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalPublisher_OpenRejectsMissingFile(t *testing.T) {
	pub := NewLocalPublisher(t.TempDir(), "", testSigner())
	id := uuid.New()

	token, _, err := pub.signer.Issue(id, FileName(id))
	require.NoError(t, err)
	_, _, err = pub.Open(token)
	assert.Error(t, err)

	token, _, err = pub.signer.Issue(id, "../etc/passwd")
	require.NoError(t, err)
	_, _, err = pub.Open(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file")
}

func TestLocalPublisher_Unsigned(t *testing.T) {
	dir := t.TempDir()
	pub := NewLocalPublisher(dir, "http://coach.test", nil)
	id := uuid.New()

	got, err := pub.Publish(context.Background(), id, FileName(id), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName(id)), got.Path)
	assert.Empty(t, got.URL)
	assert.True(t, got.ExpiresAt.IsZero())

	_, _, err = pub.Open("anything")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1c1c6e-2d1a-4f4e-9b7e-3c2a1d0e9f8a")
	assert.Equal(t, "reports/6f1c1c6e-2d1a-4f4e-9b7e-3c2a1d0e9f8a/interview_report_6f1c1c6e-2d1a-4f4e-9b7e-3c2a1d0e9f8a.pdf",
		ObjectKey(id, FileName(id)))
}

func TestNewS3Publisher_Validation(t *testing.T) {
	_, err := NewS3Publisher(testS3Config(func(c *s3cfg) { c.Endpoint = "" }))
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewS3Publisher(testS3Config(func(c *s3cfg) { c.SecretKey = "" }))
	assert.ErrorContains(t, err, "secret key")

	_, err = NewS3Publisher(testS3Config(func(c *s3cfg) { c.Bucket = " " }))
	assert.ErrorContains(t, err, "bucket")

	p, err := NewS3Publisher(testS3Config(nil))
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", p.region)
}

type s3cfg = config.S3Config

func testS3Config(mutate func(*s3cfg)) s3cfg {
	c := s3cfg{Endpoint: "localhost:9000", Bucket: "exports", AccessKey: "minio", SecretKey: "minio123"}
	if mutate != nil {
		mutate(&c)
	}
	return c
}
