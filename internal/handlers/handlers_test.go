package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/logging"
	"vocabquiz/internal/models"
	"vocabquiz/internal/quizflow"
	"vocabquiz/internal/security"
	"vocabquiz/internal/service"
)

// memBackend is an in-memory backend.Backend
type memBackend struct {
	mu       sync.Mutex
	users    map[string]models.User // by email
	tokens   map[string]string      // token -> email
	vocab    []models.VocabItem
	progress map[string]models.ProgressRecord
	nextID   int
}

func newMemBackend(vocab []models.VocabItem) *memBackend {
	return &memBackend{
		users:    make(map[string]models.User),
		tokens:   make(map[string]string),
		vocab:    vocab,
		progress: make(map[string]models.ProgressRecord),
	}
}

func (b *memBackend) ListVocabulary(context.Context) ([]models.VocabItem, error) {
	return b.vocab, nil
}

func (b *memBackend) GetProgress(_ context.Context, userID string) ([]models.ProgressRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.ProgressRecord
	for _, p := range b.progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *memBackend) UpsertProgress(_ context.Context, rec models.ProgressRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress[fmt.Sprintf("%s/%d", rec.UserID, rec.VocabID)] = rec
	return nil
}

func (b *memBackend) SignUp(_ context.Context, email, _ string) (*models.AuthSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[email]; ok {
		return nil, backend.ErrEmailTaken
	}
	b.nextID++
	b.users[email] = models.User{ID: fmt.Sprintf("user-%d", b.nextID), Email: email}
	return b.issue(email), nil
}

func (b *memBackend) SignIn(_ context.Context, email, password string) (*models.AuthSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[email]; !ok || password != "secret1" {
		return nil, backend.ErrInvalidCredentials
	}
	return b.issue(email), nil
}

func (b *memBackend) SignOut(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
	return nil
}

func (b *memBackend) CurrentUser(_ context.Context, token string) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.tokens[token]
	if !ok {
		return nil, backend.ErrUnauthenticated
	}
	u := b.users[email]
	return &u, nil
}

func (b *memBackend) progressCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.progress)
}

// issue must be called with mu held
func (b *memBackend) issue(email string) *models.AuthSession {
	token := security.GenerateID()
	b.tokens[token] = email
	return &models.AuthSession{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: b.users[email]}
}

func sampleVocab() []models.VocabItem {
	words := []struct {
		meaning, arabic string
	}{{"cat", "قطة"}, {"dog", "كلب"}, {"book", "كتاب"}, {"house", "بيت"}, {"water", "ماء"}}
	out := make([]models.VocabItem, len(words))
	for i, w := range words {
		out[i] = models.VocabItem{ID: int64(i + 1), Meaning: w.meaning, Forms: []models.Form{{Type: "singular", Value: w.arabic}}}
	}
	return out
}

type testServer struct {
	handler http.Handler
	backend *memBackend
}

func newTestServer(t *testing.T, vocab []models.VocabItem, limiter *security.RateLimiter) *testServer {
	t.Helper()
	logger := logging.Discard()
	mem := newMemBackend(vocab)
	quizService := service.NewQuizService(mem, nil, logger)

	registry := quizflow.NewRegistry(quizflow.Options{
		Loader:        quizService,
		Recorder:      quizService,
		FeedbackDelay: 100 * time.Millisecond,
		Logger:        logger,
	})
	t.Cleanup(registry.CloseAll)

	if limiter == nil {
		limiter = security.NewRateLimiter(100, time.Minute)
	}

	handler := NewRouter(Deps{
		AuthService:     service.NewAuthService(mem, nil, logger),
		ProgressService: service.NewProgressService(mem),
		Registry:        registry,
		CSRF:            security.NewCSRFGenerator("csrf-secret"),
		AuthLimiter:     limiter,
		WaitTimeout:     time.Second,
		Logger:          logger,
	})
	return &testServer{handler: handler, backend: mem}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signUp(t *testing.T, email string) sessionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/signup", "", credentialsRequest{Email: email, Password: "secret1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return decode[sessionResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRespondWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	rec := httptest.NewRecorder()
	respondWithError(rec, logger, http.StatusInternalServerError, "Internal server error", "", errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error != "Internal server error" {
		t.Errorf("body = %+v", got)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestAuthRoutes(t *testing.T) {
	srv := newTestServer(t, sampleVocab(), nil)

	rec := srv.do(t, http.MethodPost, "/auth/signup", "", credentialsRequest{Email: "Learner@example.com", Password: "secret1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body.String())
	}
	session := decode[sessionResponse](t, rec)
	if session.AccessToken == "" || session.CSRFToken == "" || session.User.Email != "learner@example.com" {
		t.Errorf("session = %+v", session)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 || cookies[0].Name != security.SessionCookieName {
		t.Errorf("cookies = %v", cookies)
	}

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "duplicate email", path: "/auth/signup", body: credentialsRequest{Email: "learner@example.com", Password: "secret1"}, status: http.StatusConflict},
		{name: "invalid email", path: "/auth/signup", body: credentialsRequest{Email: "nope", Password: "secret1"}, status: http.StatusBadRequest},
		{name: "short password", path: "/auth/signup", body: credentialsRequest{Email: "b@example.com", Password: "1"}, status: http.StatusBadRequest},
		{name: "unknown field", path: "/auth/login", body: map[string]string{"user": "x"}, status: http.StatusBadRequest},
		{name: "wrong password", path: "/auth/login", body: credentialsRequest{Email: "learner@example.com", Password: "nope"}, status: http.StatusUnauthorized},
		{name: "login", path: "/auth/login", body: credentialsRequest{Email: "learner@example.com", Password: "secret1"}, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, tt.path, "", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	rec = srv.do(t, http.MethodGet, "/auth/me", session.AccessToken, nil)
	if rec.Code != http.StatusOK || decode[sessionResponse](t, rec).User.Email != "learner@example.com" {
		t.Errorf("me = %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, "/auth/logout", session.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rec.Code)
	}
	rec = srv.do(t, http.MethodGet, "/auth/me", session.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t, sampleVocab(), nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/quiz"},
		{http.MethodPost, "/quiz/answer"},
		{http.MethodPost, "/view"},
		{http.MethodGet, "/progress"},
		{http.MethodGet, "/auth/me"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			if rec := srv.do(t, route.method, route.path, "bogus", nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestQuizOverHTTP(t *testing.T) {
	srv := newTestServer(t, sampleVocab(), nil)
	token := srv.signUp(t, "learner@example.com").AccessToken

	rec := srv.do(t, http.MethodGet, "/quiz", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /quiz status = %d, body = %s", rec.Code, rec.Body.String())
	}
	q := decode[quizResponse](t, rec)
	if q.Phase != quizflow.PhaseAwaitingAnswer || q.Question == nil || len(q.Question.Options) != 4 {
		t.Fatalf("quiz = %+v", q)
	}
	if strings.Contains(rec.Body.String(), "meaning\"") {
		t.Error("response leaks the correct meaning")
	}

	rec = srv.do(t, http.MethodPost, "/quiz/answer", token, answerRequest{Meaning: "giraffe"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown option status = %d", rec.Code)
	}

	firstID := q.Question.ID
	rec = srv.do(t, http.MethodPost, "/quiz/answer", token, answerRequest{Meaning: q.Question.Options[0]})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body = %s", rec.Code, rec.Body.String())
	}
	answered := decode[quizResponse](t, rec)
	if answered.Phase != quizflow.PhaseFeedback || answered.Feedback == nil || answered.Feedback.SelectedMeaning != q.Question.Options[0] {
		t.Fatalf("answered = %+v", answered)
	}

	rec = srv.do(t, http.MethodPost, "/quiz/answer", token, answerRequest{Meaning: q.Question.Options[1]})
	if rec.Code != http.StatusConflict {
		t.Errorf("second answer status = %d, want 409", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	var next quizResponse
	for time.Now().Before(deadline) {
		next = decode[quizResponse](t, srv.do(t, http.MethodGet, "/quiz", token, nil))
		if next.Phase == quizflow.PhaseAwaitingAnswer {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if next.Phase != quizflow.PhaseAwaitingAnswer || next.Question == nil {
		t.Fatalf("next question never arrived: %+v", next)
	}
	if next.Question.ID == firstID {
		t.Error("next question repeated the previous one")
	}
	if n := srv.backend.progressCount(); n != 1 {
		t.Errorf("progress rows = %d, want 1", n)
	}
}

func TestQuizNoVocabulary(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	token := srv.signUp(t, "learner@example.com").AccessToken

	rec := srv.do(t, http.MethodGet, "/quiz", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if q := decode[quizResponse](t, rec); q.Notice != quizflow.NoVocabularyNotice {
		t.Errorf("notice = %q", q.Notice)
	}
}

func TestViewAndProgress(t *testing.T) {
	srv := newTestServer(t, sampleVocab(), nil)
	token := srv.signUp(t, "learner@example.com").AccessToken

	rec := srv.do(t, http.MethodPost, "/view", token, viewRequest{View: "settings"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown view status = %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, "/view", token, viewRequest{View: "progress"})
	if rec.Code != http.StatusOK || decode[quizResponse](t, rec).View != quizflow.ViewProgress {
		t.Errorf("view = %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/progress", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	if p := decode[progressResponse](t, rec); p.Message != MsgNoMatchingWords || len(p.Entries) != 0 {
		t.Errorf("empty progress = %+v", p)
	}

	user, _ := srv.backend.CurrentUser(context.Background(), token)
	_ = srv.backend.UpsertProgress(context.Background(), models.ProgressRecord{UserID: user.ID, VocabID: 1, Ease: 5})
	_ = srv.backend.UpsertProgress(context.Background(), models.ProgressRecord{UserID: user.ID, VocabID: 2, Ease: 1})

	p := decode[progressResponse](t, srv.do(t, http.MethodGet, "/progress?filter=weak", token, nil))
	if p.Filter != "weak" || len(p.Entries) != 1 || p.Entries[0].Item.Meaning != "dog" || p.Strong != 1 || p.Weak != 1 {
		t.Errorf("weak progress = %+v", p)
	}

	if rec := srv.do(t, http.MethodGet, "/progress?filter=medium", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, "/view", token, viewRequest{View: "quiz"})
	if q := decode[quizResponse](t, rec); rec.Code != http.StatusOK || q.View != quizflow.ViewQuiz || q.Question == nil {
		t.Errorf("back to quiz = %d %+v", rec.Code, q)
	}
}

func TestCSRFForCookieClients(t *testing.T) {
	srv := newTestServer(t, sampleVocab(), nil)
	session := srv.signUp(t, "learner@example.com")

	post := func(csrf string) int {
		req := httptest.NewRequest(http.MethodPost, "/view", strings.NewReader(`{"view":"progress"}`))
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: session.AccessToken})
		if csrf != "" {
			req.Header.Set(security.CSRFHeader, csrf)
		}
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(""); code != http.StatusForbidden {
		t.Errorf("missing CSRF status = %d", code)
	}
	if code := post("wrong"); code != http.StatusForbidden {
		t.Errorf("bad CSRF status = %d", code)
	}
	if code := post(session.CSRFToken); code != http.StatusOK {
		t.Errorf("valid CSRF status = %d", code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, sampleVocab(), security.NewRateLimiter(2, time.Minute))

	body := credentialsRequest{Email: "x@example.com", Password: "nope"}
	for i := 0; i < 2; i++ {
		if rec := srv.do(t, http.MethodPost, "/auth/login", "", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}
	rec := srv.do(t, http.MethodPost, "/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("limited status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	status := NewStartupStatus(StepDatabase, StepMigrations)
	handler := http.HandlerFunc(status.Health)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before ready = %d", rec.Code)
	}

	status.CompleteStep(StepDatabase)
	if h := decode[healthResponse](t, rec); h.Ready {
		t.Error("not ready yet")
	}

	status.CompleteStep(StepMigrations)
	status.MarkReady()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	h := decode[healthResponse](t, rec)
	if rec.Code != http.StatusOK || !h.Ready || h.Progress != 100 || !h.Steps[1].Completed {
		t.Errorf("health = %d %+v", rec.Code, h)
	}
}

func TestQuizReady(t *testing.T) {
	user := &models.User{ID: "user-1"}
	tests := []struct {
		name  string
		state quizflow.State
		want  bool
	}{
		{name: "sign in not applied yet", state: quizflow.State{}, want: false},
		{name: "still on progress after switching", state: quizflow.State{User: user, View: quizflow.ViewProgress, Phase: quizflow.PhaseIdle}, want: false},
		{name: "loading", state: quizflow.State{User: user, View: quizflow.ViewQuiz, Phase: quizflow.PhaseLoading}, want: false},
		{name: "awaiting answer", state: quizflow.State{User: user, View: quizflow.ViewQuiz, Phase: quizflow.PhaseAwaitingAnswer}, want: true},
		{name: "feedback", state: quizflow.State{User: user, View: quizflow.ViewQuiz, Phase: quizflow.PhaseFeedback}, want: true},
		{name: "notice", state: quizflow.State{User: user, View: quizflow.ViewQuiz, Phase: quizflow.PhaseLoading, Notice: quizflow.NoVocabularyNotice}, want: true},
		{name: "error", state: quizflow.State{User: user, View: quizflow.ViewQuiz, Phase: quizflow.PhaseLoading, Error: "boom"}, want: true},
		{name: "progress with stale notice", state: quizflow.State{User: user, View: quizflow.ViewProgress, Notice: quizflow.NoVocabularyNotice}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quizReady(tt.state); got != tt.want {
				t.Errorf("quizReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

// gateLoader blocks every load until gate is closed
type gateLoader struct {
	gate chan struct{}
	set  models.OptionSet
}

func (l gateLoader) NextQuestion(ctx context.Context, _ string, _ int64) (models.OptionSet, error) {
	select {
	case <-l.gate:
		return l.set, nil
	case <-ctx.Done():
		return models.OptionSet{}, ctx.Err()
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordAnswer(context.Context, string, models.Question, string) error { return nil }

func TestQuizReadyWaitsForPendingEvents(t *testing.T) {
	cat := models.Question{Item: sampleVocab()[0]}
	loader := gateLoader{gate: make(chan struct{}), set: models.OptionSet{Question: cat, Options: []models.Question{cat}}}
	c := quizflow.NewController(context.Background(), quizflow.Options{
		Loader:        loader,
		Recorder:      nopRecorder{},
		FeedbackDelay: time.Second,
		Logger:        logging.Discard(),
	})
	t.Cleanup(c.Close)

	result := make(chan quizflow.State, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s, _ := c.Wait(ctx, quizReady)
		result <- s
	}()

	notYet := func(stage string) {
		t.Helper()
		select {
		case s := <-result:
			t.Fatalf("%s: Wait returned early with %+v", stage, s)
		case <-time.After(30 * time.Millisecond):
		}
	}

	notYet("before sign in")
	if err := c.Dispatch(quizflow.SignedIn{User: models.User{ID: "user-1"}}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	notYet("while loading")

	close(loader.gate)
	s := <-result
	if s.View != quizflow.ViewQuiz || s.Phase != quizflow.PhaseAwaitingAnswer {
		t.Fatalf("ready state = %+v", s)
	}

	// switching back from progress must not report the progress view
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Dispatch(quizflow.ViewChanged{View: quizflow.ViewProgress})
	if _, err := c.Wait(ctx, func(s quizflow.State) bool { return s.View == quizflow.ViewProgress }); err != nil {
		t.Fatalf("Wait(progress) error = %v", err)
	}
	_ = c.Dispatch(quizflow.ViewChanged{View: quizflow.ViewQuiz})
	s, err := c.Wait(ctx, quizReady)
	if err != nil || s.View != quizflow.ViewQuiz || s.Question == nil {
		t.Errorf("after returning to quiz = %+v, %v", s, err)
	}
}
