package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jobprep/interviewd/internal/artifact"
	"github.com/jobprep/interviewd/internal/evaluation"
	"github.com/jobprep/interviewd/internal/interview"
	"github.com/jobprep/interviewd/internal/session"
	"github.com/jobprep/interviewd/internal/skills"
	"github.com/jobprep/interviewd/internal/storage"
)

// --- mocks ---

// mockGenerator routes prompts by fragment so one fake serves greetings,
// document parsing, and evaluation checks.
type mockGenerator struct{}

func (mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "Welcome to the interview!", nil
}

func (mockGenerator) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	switch {
	case strings.Contains(prompt, "consistency of these interview questions"):
		return json.RawMessage(`{"overall_consistency_score": 4.0, "consistency_issues": [], "recommendations": []}`), nil
	case strings.Contains(prompt, "potential hallucinations"):
		return json.RawMessage(`{"hallucination_score": 0.1, "detected_issues": [], "confidence": 0.9, "recommendations": []}`), nil
	case strings.Contains(prompt, "quality of these AI-generated feedback"):
		return json.RawMessage(`{"overall_quality_score": 4.0, "quality_issues": [], "improvement_suggestions": []}`), nil
	default:
		return json.RawMessage(`{"parsed": true}`), nil
	}
}

type mockAnalyzer struct{}

func (mockAnalyzer) Compare(ctx context.Context, resumeText, jdText string) (skills.Match, error) {
	return skills.Match{MatchedSkills: []string{"Go"}, MissingSkills: []string{"SQL"}, Summary: "ok"}, nil
}

type mockQuestioner struct{ n int }

func (q *mockQuestioner) NextQuestion(ctx context.Context, resumeText, jdText string, transcript []interview.Slot, qt interview.QuestionType) (string, error) {
	q.n++
	return fmt.Sprintf("Question %d?", q.n), nil
}

type mockScorer struct{}

func (mockScorer) Score(ctx context.Context, question, answer string) interview.Score {
	return interview.Score{Clarity: 4, Relevance: 4, TechnicalDepth: 3, Confidence: 4, Comment: "solid"}
}

type mockFeedback struct{}

func (mockFeedback) Feedback(ctx context.Context, question, answer string) (string, error) {
	return "Add concrete numbers.", nil
}

type mockTone struct{}

func (mockTone) Analyze(ctx context.Context, answer string) interview.Tone {
	return interview.Tone{Mood: "calm", Confident: true, SuggestedStyle: "neutral"}
}

func newTestServer(t *testing.T, token string) *httptest.Server {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := session.NewManager(session.Deps{
		Store:      store,
		Cache:      artifact.New(store),
		Generator:  mockGenerator{},
		Analyzer:   mockAnalyzer{},
		Questioner: &mockQuestioner{},
		Scorer:     mockScorer{},
		Feedback:   mockFeedback{},
		Tone:       mockTone{},
	})

	deps := Deps{
		Manager: mgr,
		Store:   store,
		Harness: evaluation.NewHarness(mockGenerator{}, mockScorer{}),
	}

	srv := httptest.NewServer(NewHandler(deps, token))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// createSession uploads a resume and a job description and returns the new
// session id.
func createSession(t *testing.T, baseURL string) string {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("email", "candidate@example.com"); err != nil {
		t.Fatal(err)
	}
	fw, err := w.CreateFormFile("resume", "resume.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("Go engineer with five years of backend experience."))
	fw, err = w.CreateFormFile("job_description", "jd.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("Backend engineer role requiring Go and SQL."))
	w.Close()

	resp, err := http.Post(baseURL+"/interview/context", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /interview/context: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	decodeJSON(t, resp, &created)
	if created.SessionID == "" {
		t.Fatal("session_id missing in response")
	}
	if created.State != string(session.StateContextEstablished) {
		t.Errorf("state = %q", created.State)
	}
	return created.SessionID
}

// --- tests ---

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/auth/signup", credentials{Email: "alice@example.com", Password: "s3cret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/auth/signup", credentials{Email: "alice@example.com", Password: "other"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/auth/login", credentials{Email: "alice@example.com", Password: "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/auth/login", credentials{Email: "alice@example.com", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/auth/login", credentials{Email: "nobody@example.com", Password: "s3cret"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestInterviewFlow(t *testing.T) {
	srv := newTestServer(t, "")
	id := createSession(t, srv.URL)

	// Start returns the greeting and the first question.
	resp := postJSON(t, srv.URL+"/interview/"+id+"/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}
	var started session.StartResult
	decodeJSON(t, resp, &started)
	if started.Question == "" || started.Greeting == "" {
		t.Fatalf("start result incomplete: %+v", started)
	}

	// Four answers complete the pipeline.
	for i := 0; i < 4; i++ {
		resp := postJSON(t, srv.URL+"/interview/"+id+"/answer", map[string]string{"answer": fmt.Sprintf("answer %d", i+1)})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("answer %d status = %d, want 200", i+1, resp.StatusCode)
		}
		var result session.AnswerResult
		decodeJSON(t, resp, &result)
		if i < 3 && result.Question == "" {
			t.Errorf("answer %d: next question missing", i+1)
		}
		if i == 3 && !result.Completed {
			t.Error("4th answer must complete the interview")
		}
	}

	// Telemetry is accepted before summarization.
	resp = postJSON(t, srv.URL+"/interview/"+id+"/telemetry", session.TelemetryUpdate{TabSwitches: 2, DurationSeconds: 900})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("telemetry status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Summary is available and carries the transcript.
	sresp, err := http.Get(srv.URL + "/interview/" + id + "/summary")
	if err != nil {
		t.Fatal(err)
	}
	if sresp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", sresp.StatusCode)
	}
	var summary session.Summary
	decodeJSON(t, sresp, &summary)
	if summary.SessionID != id || len(summary.Transcript) != 4 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Telemetry.TabSwitches != 2 {
		t.Errorf("telemetry in summary = %+v", summary.Telemetry)
	}
}

func TestSummaryBeforeCompletion(t *testing.T) {
	srv := newTestServer(t, "")
	id := createSession(t, srv.URL)

	resp, err := http.Get(srv.URL + "/interview/" + id + "/summary")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/interview/no-such-id/start", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBlankAnswerRejected(t *testing.T) {
	srv := newTestServer(t, "")
	id := createSession(t, srv.URL)

	resp := postJSON(t, srv.URL+"/interview/"+id+"/start", nil)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/interview/"+id+"/answer", map[string]string{"answer": "   "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEvaluationEndpoints(t *testing.T) {
	srv := newTestServer(t, "")
	id := createSession(t, srv.URL)

	resp := postJSON(t, srv.URL+"/interview/"+id+"/start", nil)
	resp.Body.Close()
	for i := 0; i < 4; i++ {
		resp := postJSON(t, srv.URL+"/interview/"+id+"/answer", map[string]string{"answer": "a real answer"})
		resp.Body.Close()
	}

	resp = postJSON(t, srv.URL+"/interview/"+id+"/evaluate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evaluate status = %d, want 200", resp.StatusCode)
	}
	var report evaluation.Report
	decodeJSON(t, resp, &report)
	if report.SessionID != id {
		t.Errorf("SessionID = %q", report.SessionID)
	}
	if report.ComponentScores.ScoringConsistency != 5 {
		t.Errorf("ScoringConsistency = %v, want 5", report.ComponentScores.ScoringConsistency)
	}

	// The report is persisted and retrievable.
	gresp, err := http.Get(srv.URL + "/interview/" + id + "/evaluation")
	if err != nil {
		t.Fatal(err)
	}
	if gresp.StatusCode != http.StatusOK {
		t.Fatalf("get evaluation status = %d, want 200", gresp.StatusCode)
	}
	var stored evaluation.Report
	decodeJSON(t, gresp, &stored)
	if stored.SessionID != id {
		t.Errorf("stored SessionID = %q", stored.SessionID)
	}
}

func TestListAndPruneSessions(t *testing.T) {
	srv := newTestServer(t, "")

	for i := 0; i < 3; i++ {
		createSession(t, srv.URL)
	}

	resp, err := http.Get(srv.URL + "/sessions?email=candidate@example.com")
	if err != nil {
		t.Fatal(err)
	}
	var listed struct {
		Sessions []session.Meta `json:"sessions"`
	}
	decodeJSON(t, resp, &listed)
	if len(listed.Sessions) != 3 {
		t.Fatalf("listed %d sessions, want 3", len(listed.Sessions))
	}

	presp := postJSON(t, srv.URL+"/sessions/prune", map[string]any{"email": "candidate@example.com", "keep": 1})
	if presp.StatusCode != http.StatusOK {
		t.Fatalf("prune status = %d, want 200", presp.StatusCode)
	}
	var pruned struct {
		Deleted int `json:"deleted"`
	}
	decodeJSON(t, presp, &pruned)
	if pruned.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", pruned.Deleted)
	}

	resp, err = http.Get(srv.URL + "/sessions?email=candidate@example.com")
	if err != nil {
		t.Fatal(err)
	}
	decodeJSON(t, resp, &listed)
	if len(listed.Sessions) != 1 {
		t.Errorf("listed %d sessions after prune, want 1", len(listed.Sessions))
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, "sekrit-token")

	// Health stays open.
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	// Everything else requires the token.
	resp, err = http.Get(srv.URL + "/sessions?email=a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/sessions?email=a@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer sekrit-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", resp.StatusCode)
	}
}
