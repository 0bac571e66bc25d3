package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jobprep/interviewd/internal/interview"
	"github.com/jobprep/interviewd/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id, email string, createdAt time.Time) *session.Session {
	return &session.Session{
		ID:            id,
		UserEmail:     email,
		State:         session.StateContextEstablished,
		QuestionTypes: interview.DefaultPipeline(),
		Source:        session.SourceContext{ResumeText: "resume text", JDText: "jd text"},
		CreatedAt:     createdAt,
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
	if len(v1) == 0 {
		t.Error("expected at least one applied migration")
	}
}

func TestUserLifecycle(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateUser("alice@example.com", "hash-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUser("alice@example.com")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.PasswordHash != "hash-1" {
		t.Errorf("PasswordHash = %q", u.PasswordHash)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt must be set")
	}

	if err := s.CreateUser("alice@example.com", "hash-2"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate CreateUser error = %v, want ErrUserExists", err)
	}

	if _, err := s.GetUser("nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	sess := testSession("s-1", "alice@example.com", time.Now().UTC())
	sess.Transcript = []interview.Slot{{
		Question: "Tell me about Go.",
		Answer:   "I like it.",
		Feedback: "Be specific.",
		Score:    &interview.Score{Clarity: 4, Relevance: 3, TechnicalDepth: 3, Confidence: 4, Comment: "decent"},
	}}
	sess.StageIndex = 1

	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, ok, err := s.GetSession("s-1")
	if err != nil || !ok {
		t.Fatalf("GetSession = (%v, %v)", ok, err)
	}
	if got.UserEmail != "alice@example.com" || got.StageIndex != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Score == nil || got.Transcript[0].Score.Clarity != 4 {
		t.Errorf("transcript round trip mismatch: %+v", got.Transcript)
	}

	// Upsert with new state.
	sess.State = session.StateCompleted
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession (update): %v", err)
	}
	got, _, _ = s.GetSession("s-1")
	if got.State != session.StateCompleted {
		t.Errorf("State = %q after update", got.State)
	}

	if _, ok, err := s.GetSession("missing"); ok || err != nil {
		t.Errorf("GetSession(missing) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := s.SaveSession(testSession(fmt.Sprintf("s-%d", i), "alice@example.com", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SaveSession(testSession("other", "bob@example.com", base)); err != nil {
		t.Fatal(err)
	}

	metas, err := s.ListSessions("alice@example.com")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("len = %d, want 3", len(metas))
	}
	if metas[0].ID != "s-2" || metas[2].ID != "s-0" {
		t.Errorf("order = [%s %s %s], want newest first", metas[0].ID, metas[1].ID, metas[2].ID)
	}

	users, err := s.ListSessionUsers()
	if err != nil {
		t.Fatalf("ListSessionUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("users = %v, want 2 entries", users)
	}
}

func TestPruneSessions_CascadesToSummaries(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("s-%d", i)
		if err := s.SaveSession(testSession(id, "alice@example.com", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveSummary(id, []byte(`{"session_id":"`+id+`"}`)); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := s.PruneSessions("alice@example.com", 2)
	if err != nil {
		t.Fatalf("PruneSessions: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	// Oldest two are gone, summaries included.
	for _, id := range []string{"s-0", "s-1"} {
		if _, ok, _ := s.GetSession(id); ok {
			t.Errorf("session %s must be pruned", id)
		}
		if _, ok, _ := s.GetSummary(id); ok {
			t.Errorf("summary for %s must be pruned", id)
		}
	}
	for _, id := range []string{"s-2", "s-3"} {
		if _, ok, _ := s.GetSession(id); !ok {
			t.Errorf("session %s must survive", id)
		}
	}
}

func TestSummary_FirstWriteWins(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveSummary("s-1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	if err := s.SaveSummary("s-1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("second SaveSummary: %v", err)
	}

	doc, ok, err := s.GetSummary("s-1")
	if err != nil || !ok {
		t.Fatalf("GetSummary = (%v, %v)", ok, err)
	}
	if string(doc) != `{"v":1}` {
		t.Errorf("doc = %s, want first write preserved", doc)
	}

	if _, ok, _ := s.GetSummary("missing"); ok {
		t.Error("GetSummary(missing) must report absence")
	}
}

func TestEvaluation_LastWriteWins(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveEvaluation("s-1", []byte(`{"overall_score":3}`)); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	if err := s.SaveEvaluation("s-1", []byte(`{"overall_score":4}`)); err != nil {
		t.Fatalf("second SaveEvaluation: %v", err)
	}

	doc, ok, err := s.GetEvaluation("s-1")
	if err != nil || !ok {
		t.Fatalf("GetEvaluation = (%v, %v)", ok, err)
	}
	if string(doc) != `{"overall_score":4}` {
		t.Errorf("doc = %s, want latest report", doc)
	}
}

func TestArtifacts(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	if err := s.PutArtifact("hash-a", "parsed_resume", []byte(`{"name":"Alice"}`), now); err != nil {
		t.Fatalf("PutArtifact: %v", err)
	}

	payload, ok, err := s.GetArtifact("hash-a", "parsed_resume")
	if err != nil || !ok {
		t.Fatalf("GetArtifact = (%v, %v)", ok, err)
	}
	if string(payload) != `{"name":"Alice"}` {
		t.Errorf("payload = %s", payload)
	}

	// Same hash under a different kind is a separate record.
	if _, ok, _ := s.GetArtifact("hash-a", "parsed_jd"); ok {
		t.Error("different kind must miss")
	}

	// Duplicate writes keep the original payload.
	if err := s.PutArtifact("hash-a", "parsed_resume", []byte(`{"name":"Mallory"}`), now); err != nil {
		t.Fatalf("duplicate PutArtifact: %v", err)
	}
	payload, _, _ = s.GetArtifact("hash-a", "parsed_resume")
	if string(payload) != `{"name":"Alice"}` {
		t.Errorf("payload = %s, want original preserved", payload)
	}
}
