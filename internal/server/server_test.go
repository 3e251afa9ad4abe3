package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/account"
	"github.com/jonathan/interview-coach/internal/apperr"
	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/export"
	"github.com/jonathan/interview-coach/internal/history"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/memstore"
	"github.com/jonathan/interview-coach/internal/rendering"
	"github.com/jonathan/interview-coach/internal/report"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/types"
)

const (
	likelihoodJSON = `[{"assessment":"low","percentage":12}]`
	evaluationJSON = `{"overallScore":81,"clarityScore":70,"pacingScore":65,
		"strengths":["structured answers"],"areasForImprovement":["more metrics"],
		"suggestedResources":[],"summary":"Solid interview.",
		"aiLikelihood":{"score":20,"description":"Natural.","assessment":"low"}}`
	breakdownJSON = `[{"question":"Tell me about goroutines.","userAnswer":"They are cheap threads.","score":80,"clarityScore":75,"relevanceScore":90,"pacingScore":70,"duration":"1 min 0 sec","strengths":["accurate"],"improvements":["example"],"aiAnalysis":"Good."}]`
)

// stubGenerator answers JSON requests by report stage and text requests with
// a fixed question or narrative.
type stubGenerator struct {
	mu  sync.Mutex
	err error
}

func (g *stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	system := ""
	if len(req.Messages) > 0 {
		system = req.Messages[0].Text
	}
	if req.Format == llm.FormatJSON {
		switch {
		case strings.Contains(system, "AI-generated text"):
			return likelihoodJSON, nil
		case strings.Contains(system, "question-by-question"):
			return breakdownJSON, nil
		default:
			return evaluationJSON, nil
		}
	}
	if strings.Contains(system, "evaluation document") {
		return "Interview Overview\n\nThe candidate answered clearly.", nil
	}
	return "Tell me about goroutines.", nil
}

func (g *stubGenerator) Close() error { return nil }

func (g *stubGenerator) fail(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

type stubSpeech struct{}

func (stubSpeech) Render(context.Context, string) (*types.Audio, error) { return nil, nil }

func (stubSpeech) Transcribe(_ context.Context, data []byte, _ string) (string, error) {
	return "transcribed " + string(data), nil
}

type stubRenderer struct{}

func (stubRenderer) Name() string { return "stub" }

func (stubRenderer) Render(context.Context, *rendering.Document) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

type testServer struct {
	handler http.Handler
	store   *memstore.Store
	gen     *stubGenerator
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *testServer {
	t.Helper()
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	store := memstore.New()
	gen := &stubGenerator{}
	pipeline := report.New(store, gen, nil, 0)
	signer := export.NewSigner(&config.DownloadConfig{Secret: "0123456789abcdef-secret", Expiration: time.Hour})
	downloads := export.NewLocalPublisher(t.TempDir(), "http://coach.test", signer)

	svc := Services{
		Accounts:   account.NewService(store, nil),
		History:    history.NewService(store, nil),
		Interviews: interview.NewService(store, gen, stubSpeech{}, nil, 0),
		Reports:    pipeline,
		Exports:    export.NewService(pipeline, stubRenderer{}, downloads, nil),
		Downloads:  downloads,
	}
	s := New(Config{Port: 0, RateLimit: rl}, svc, nil)
	return &testServer{handler: s.Handler(), store: store, gen: gen}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) createUser(t *testing.T) types.User {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/users", map[string]string{"name": "Ada Lovelace", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[types.User](t, w)
}

func (ts *testServer) createInterview(t *testing.T, userID uuid.UUID) types.Interview {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/interviews", map[string]string{
		"user_id":        userID.String(),
		"domain":         "Go",
		"experience":     "senior",
		"interview_type": "Technical",
		"mode":           "text",
		"difficulty":     "Hard",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[types.Interview](t, w)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodOptions, "/interviews", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)

	t.Run("duplicate email", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/users", map[string]string{"name": "Other", "email": "ADA@example.com"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "conflict", decode[ErrorBody](t, w).Error)
	})

	t.Run("invalid body", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/users", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[ErrorBody](t, w)
		assert.Equal(t, "validation", body.Error)
		assert.Equal(t, "invalid request body", body.Message)
	})

	t.Run("profile", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/users/"+user.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		p := decode[account.Profile](t, w)
		assert.Equal(t, "Ada Lovelace", p.User.Name)
		assert.Equal(t, 0, p.InterviewCount)
	})

	t.Run("profile accepts compact id", func(t *testing.T) {
		compact := strings.ReplaceAll(user.ID.String(), "-", "")
		w := ts.do(t, http.MethodGet, "/users/"+compact, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		w := ts.do(t, http.MethodPut, "/users/"+user.ID.String(), map[string]string{"bio": "Analyst"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Analyst", decode[types.User](t, w).Bio)
	})

	t.Run("bad id", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/users/not-an-id", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/users/"+uuid.NewString()+"/history", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decode[ErrorBody](t, w).Error)
	})

	t.Run("delete", func(t *testing.T) {
		w := ts.do(t, http.MethodDelete, "/users/"+user.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		w = ts.do(t, http.MethodDelete, "/users/"+user.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreateInterview_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/interviews", map[string]string{
		"user_id": uuid.NewString(), "domain": "Go", "experience": "junior",
		"interview_type": "Technical", "mode": "text", "difficulty": "Easy",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	user := ts.createUser(t)
	w = ts.do(t, http.MethodPost, "/interviews", map[string]string{
		"user_id": user.ID.String(), "domain": "Go", "experience": "junior",
		"interview_type": "Technical", "mode": "video", "difficulty": "Easy",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterviewFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)
	in := ts.createInterview(t, user.ID)
	base := "/interviews/" + in.ID.String()

	w := ts.do(t, http.MethodGet, base+"/mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text", decode[map[string]string](t, w)["mode"])

	w = ts.do(t, http.MethodPost, base+"/greeting", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	greeting := decode[types.Turn](t, w)
	assert.True(t, greeting.IsFirstMessage)

	w = ts.do(t, http.MethodPost, base+"/turns", map[string]string{"sender": "user", "text": "Ready when you are."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/greeting", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, base+"/exchange", map[string]int{"turn_index": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ex := decode[interview.Exchange](t, w)
	assert.Equal(t, "Tell me about goroutines.", ex.Text)
	assert.False(t, ex.Finished)

	w = ts.do(t, http.MethodPost, base+"/turns", map[string]string{"sender": "user", "text": "They are cheap threads."})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, base+"/timer", map[string]any{"elapsed_seconds": 90, "completion": "incomplete"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.CompletionIncomplete, decode[types.Interview](t, w).Completion)

	w = ts.do(t, http.MethodGet, base+"/turns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[interview.Conversation](t, w)
	assert.Len(t, conv.Turns, 4)
	assert.Equal(t, 90, conv.ElapsedSeconds)
	assert.Equal(t, types.StateIncomplete, conv.State)

	w = ts.do(t, http.MethodGet, base+"/transcript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tr := decode[TranscriptResponse](t, w)
	require.Len(t, tr.Pairs, 1)
	assert.Equal(t, "They are cheap threads.", tr.Pairs[0].Answer)

	w = ts.do(t, http.MethodGet, base+"/report", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, base+"/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, base+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[types.StoredReport](t, w)
	assert.Equal(t, 81.0, rep.Report.OverallScore)
	assert.Equal(t, 90, rep.ElapsedSeconds)

	w = ts.do(t, http.MethodGet, base+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rep.ID, decode[types.StoredReport](t, w).ID)

	w = ts.do(t, http.MethodPost, base+"/breakdown", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b := decode[types.StoredBreakdown](t, w)
	require.Len(t, b.Entries, 1)
	assert.Equal(t, 90, b.Duration)

	w = ts.do(t, http.MethodGet, base+"/breakdown", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[export.Result](t, w)
	assert.Equal(t, "interview_report_"+in.ID.String()+".pdf", res.FileName)
	require.NotEmpty(t, res.URL)

	link, err := url.Parse(res.URL)
	require.NoError(t, err)
	w = ts.do(t, http.MethodGet, link.Path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), res.FileName)
	assert.Equal(t, "%PDF-1.4 stub", w.Body.String())

	w = ts.do(t, http.MethodGet, "/users/"+user.ID.String()+"/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	perf := decode[history.Performance](t, w)
	require.NotNil(t, perf.HighestOverallScore)
	assert.Equal(t, 81.0, *perf.HighestOverallScore)

	w = ts.do(t, http.MethodGet, "/users/"+user.ID.String()+"/scores", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []float64{81}, decode[map[string][]float64](t, w)["overall_scores"])

	w = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExchange_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)
	in := ts.createInterview(t, user.ID)
	path := "/interviews/" + in.ID.String() + "/exchange"

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"missing index", map[string]any{}, http.StatusBadRequest, "validation"},
		{"negative index", map[string]int{"turn_index": -1}, http.StatusBadRequest, "validation"},
		{"index past budget", map[string]int{"turn_index": 11}, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, decode[ErrorBody](t, w).Error)
		})
	}

	t.Run("generator failure", func(t *testing.T) {
		ts.gen.fail(errors.New("quota exceeded"))
		defer ts.gen.fail(nil)

		w := ts.do(t, http.MethodPost, path, map[string]int{"turn_index": 0})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		body := decode[ErrorBody](t, w)
		assert.Equal(t, "upstream_generation", body.Error)
		assert.NotContains(t, body.Message, "quota")
	})

	t.Run("completed interview", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, path, map[string]int{"turn_index": 10})
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[interview.Exchange](t, w).Finished)

		w = ts.do(t, http.MethodPost, path, map[string]int{"turn_index": 3})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTimer_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)
	in := ts.createInterview(t, user.ID)
	path := "/interviews/" + in.ID.String() + "/timer"

	w := ts.do(t, http.MethodPost, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, path, map[string]any{"elapsed_seconds": 10, "completion": "completed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, path, map[string]any{"elapsed_seconds": 20, "completion": "incomplete"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func voiceRequest(t *testing.T, path string, audio []byte, sender string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if sender != "" {
		require.NoError(t, mw.WriteField("sender", sender))
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "answer.webm")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRecordVoiceTurn(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)
	in := ts.createInterview(t, user.ID)
	path := "/interviews/" + in.ID.String() + "/turns/voice"

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, voiceRequest(t, path, []byte("hello"), ""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "transcribed hello", body["transcript"])

	turns, err := ts.store.ListTurns(context.Background(), in.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, types.SenderUser, turns[0].Sender)

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, voiceRequest(t, path, nil, "user"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownload_BadToken(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/downloads/not-a-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorBody](t, w).Error)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &ratelimit.Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute})
	path := "/users/" + uuid.NewString()

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, w)["error"])

	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("op", "f", "bad"), http.StatusBadRequest},
		{apperr.NotFound("op", "interview", "x"), http.StatusNotFound},
		{apperr.Conflict("op", "busy"), http.StatusConflict},
		{apperr.Upstream("op", errors.New("x")), http.StatusBadGateway},
		{apperr.Internal("op", errors.New("x")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
