package quizflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vocabquiz/internal/logging"
	"vocabquiz/internal/models"
	"vocabquiz/internal/quiz"
)

type fakeLoader struct {
	mu     sync.Mutex
	calls  []int64
	err    error
	result models.OptionSet
}

func (f *fakeLoader) NextQuestion(_ context.Context, _ string, lastID int64) (models.OptionSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, lastID)
	if f.err != nil {
		return models.OptionSet{}, f.err
	}
	return f.result, nil
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRecorder struct {
	mu       sync.Mutex
	err      error
	selected []string
}

func (f *fakeRecorder) RecordAnswer(_ context.Context, _ string, _ models.Question, selected string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, selected)
	return f.err
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.selected)
}

func newTestController(t *testing.T, loader *fakeLoader, recorder *fakeRecorder, delay time.Duration) *Controller {
	t.Helper()
	c := NewController(context.Background(), Options{
		Loader:        loader,
		Recorder:      recorder,
		FeedbackDelay: delay,
		Logger:        logging.Discard(),
	})
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, c *Controller, pred func(State) bool) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := c.Wait(ctx, pred)
	if err != nil {
		t.Fatalf("Wait() error = %v, state = %+v", err, s)
	}
	return s
}

func phaseIs(p Phase) func(State) bool {
	return func(s State) bool { return s.Phase == p }
}

func TestControllerFullCycle(t *testing.T) {
	loader := &fakeLoader{result: testSet()}
	recorder := &fakeRecorder{}
	c := newTestController(t, loader, recorder, 20*time.Millisecond)

	if err := c.Dispatch(SignedIn{User: testUser()}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	s := waitFor(t, c, phaseIs(PhaseAwaitingAnswer))
	if s.Question.Question.Item.Meaning != "cat" {
		t.Fatalf("question = %+v", s.Question)
	}
	first := s.Generation

	_ = c.Dispatch(AnswerSelected{Meaning: "cat"})
	_ = c.Dispatch(AnswerSelected{Meaning: "dog"})
	s = waitFor(t, c, phaseIs(PhaseFeedback))
	if !s.Feedback.Correct {
		t.Errorf("feedback = %+v", s.Feedback)
	}

	// next question arrives after the feedback delay
	waitFor(t, c, func(s State) bool {
		return s.Phase == PhaseAwaitingAnswer && s.Generation > first
	})

	if n := recorder.count(); n != 1 {
		t.Errorf("recorded %d answers, want 1", n)
	}
	if n := loader.callCount(); n != 2 {
		t.Errorf("loaded %d questions, want 2", n)
	}
	loader.mu.Lock()
	lastID := loader.calls[1]
	loader.mu.Unlock()
	if lastID != 1 {
		t.Errorf("second load avoided %d, want 1", lastID)
	}
}

func TestControllerWriteFailureStillAdvances(t *testing.T) {
	loader := &fakeLoader{result: testSet()}
	recorder := &fakeRecorder{err: errors.New("upsert failed")}
	c := newTestController(t, loader, recorder, 10*time.Millisecond)

	_ = c.Dispatch(SignedIn{User: testUser()})
	waitFor(t, c, phaseIs(PhaseAwaitingAnswer))
	first := c.State().Generation

	_ = c.Dispatch(AnswerSelected{Meaning: "dog"})
	waitFor(t, c, func(s State) bool {
		return s.Phase == PhaseAwaitingAnswer && s.Generation > first
	})
}

func TestControllerFetchFailureBlocks(t *testing.T) {
	loader := &fakeLoader{err: errors.New("network down")}
	c := newTestController(t, loader, &fakeRecorder{}, 10*time.Millisecond)

	_ = c.Dispatch(SignedIn{User: testUser()})
	s := waitFor(t, c, func(s State) bool { return s.Error != "" })
	if s.Phase != PhaseLoading {
		t.Errorf("phase = %s, want loading", s.Phase)
	}

	time.Sleep(30 * time.Millisecond)
	if n := loader.callCount(); n != 1 {
		t.Errorf("loader called %d times, want no retry", n)
	}
}

func TestControllerNoVocabularyNotice(t *testing.T) {
	loader := &fakeLoader{err: quiz.ErrNoVocabulary}
	c := newTestController(t, loader, &fakeRecorder{}, 10*time.Millisecond)

	_ = c.Dispatch(SignedIn{User: testUser()})
	s := waitFor(t, c, func(s State) bool { return s.Notice != "" })
	if s.Notice != NoVocabularyNotice || s.Question != nil {
		t.Errorf("state = %+v", s)
	}
}

func TestControllerCloseSuppressesScheduledLoad(t *testing.T) {
	loader := &fakeLoader{result: testSet()}
	recorder := &fakeRecorder{}
	c := newTestController(t, loader, recorder, 50*time.Millisecond)

	_ = c.Dispatch(SignedIn{User: testUser()})
	waitFor(t, c, phaseIs(PhaseAwaitingAnswer))
	_ = c.Dispatch(AnswerSelected{Meaning: "cat"})
	waitFor(t, c, phaseIs(PhaseFeedback))

	// give the record effect time to arm the timer
	time.Sleep(10 * time.Millisecond)
	c.Close()

	time.Sleep(100 * time.Millisecond)
	if n := loader.callCount(); n != 1 {
		t.Errorf("loader called %d times after close, want 1", n)
	}
	if err := c.Dispatch(ViewChanged{View: ViewProgress}); !errors.Is(err, ErrClosed) {
		t.Errorf("Dispatch() after close error = %v, want ErrClosed", err)
	}
	if s := c.State(); s.Phase != PhaseFeedback {
		t.Errorf("state advanced after close: %s", s.Phase)
	}
}

func TestControllerViewSwitchCancelsTimer(t *testing.T) {
	loader := &fakeLoader{result: testSet()}
	c := newTestController(t, loader, &fakeRecorder{}, 40*time.Millisecond)

	_ = c.Dispatch(SignedIn{User: testUser()})
	waitFor(t, c, phaseIs(PhaseAwaitingAnswer))
	_ = c.Dispatch(AnswerSelected{Meaning: "cat"})
	_ = c.Dispatch(ViewChanged{View: ViewProgress})
	waitFor(t, c, func(s State) bool { return s.View == ViewProgress })

	time.Sleep(80 * time.Millisecond)
	if s := c.State(); s.View != ViewProgress {
		t.Errorf("view = %s, want progress", s.View)
	}
	if n := loader.callCount(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

func TestControllerWaitRespectsContext(t *testing.T) {
	c := newTestController(t, &fakeLoader{result: testSet()}, &fakeRecorder{}, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Wait(ctx, func(s State) bool { return s.Authenticated() })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(Options{
		Loader:        &fakeLoader{result: testSet()},
		Recorder:      &fakeRecorder{},
		FeedbackDelay: 10 * time.Millisecond,
		Logger:        logging.Discard(),
	})
	t.Cleanup(reg.CloseAll)

	user := testUser()
	c1 := reg.Acquire(context.Background(), user)
	c2 := reg.Acquire(context.Background(), user)
	if c1 != c2 {
		t.Error("Acquire should reuse the running controller")
	}
	s := waitFor(t, c1, phaseIs(PhaseAwaitingAnswer))
	if s.User == nil || s.User.ID != user.ID {
		t.Errorf("controller user = %+v", s.User)
	}

	other := reg.Acquire(context.Background(), models.User{ID: "user-2"})
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}

	reg.Release(user.ID)
	if _, ok := reg.Lookup(user.ID); ok {
		t.Error("released controller still registered")
	}
	if err := c1.Dispatch(SignedOut{}); !errors.Is(err, ErrClosed) {
		t.Errorf("released controller still accepts events: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if n := reg.SweepIdle(time.Millisecond); n != 1 {
		t.Errorf("SweepIdle() = %d, want 1", n)
	}
	if err := other.Dispatch(SignedOut{}); !errors.Is(err, ErrClosed) {
		t.Errorf("swept controller still accepts events: %v", err)
	}
}

type tokenKey struct{}

// tokenLoader records the token visible to each load
type tokenLoader struct {
	mu     sync.Mutex
	tokens []any
}

func (l *tokenLoader) NextQuestion(ctx context.Context, _ string, _ int64) (models.OptionSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = append(l.tokens, ctx.Value(tokenKey{}))
	return testSet(), nil
}

func (l *tokenLoader) seen() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any(nil), l.tokens...)
}

func TestRegistryAcquireAppliesSignIn(t *testing.T) {
	reg := NewRegistry(Options{
		Loader:        &fakeLoader{result: testSet()},
		Recorder:      &fakeRecorder{},
		FeedbackDelay: 10 * time.Millisecond,
		Logger:        logging.Discard(),
	})
	t.Cleanup(reg.CloseAll)

	c := reg.Acquire(context.Background(), testUser())
	if s := c.State(); !s.Authenticated() || s.View != ViewQuiz {
		t.Errorf("state after Acquire = %+v, want signed in on the quiz view", s)
	}
}

func TestRegistryAcquireRefreshesRequestValues(t *testing.T) {
	loader := &tokenLoader{}
	reg := NewRegistry(Options{
		Loader:        loader,
		Recorder:      &fakeRecorder{},
		FeedbackDelay: 10 * time.Millisecond,
		Logger:        logging.Discard(),
	})
	t.Cleanup(reg.CloseAll)

	user := testUser()
	first, cancel := context.WithCancel(context.WithValue(context.Background(), tokenKey{}, "old-token"))
	c := reg.Acquire(first, user)
	waitFor(t, c, phaseIs(PhaseAwaitingAnswer))
	// the request that created the controller has finished
	cancel()

	if got := reg.Acquire(context.WithValue(context.Background(), tokenKey{}, "new-token"), user); got != c {
		t.Fatal("Acquire should reuse the running controller")
	}
	_ = c.Dispatch(ViewChanged{View: ViewProgress})
	_ = c.Dispatch(ViewChanged{View: ViewQuiz})
	waitFor(t, c, func(s State) bool {
		return s.Phase == PhaseAwaitingAnswer && len(loader.seen()) == 2
	})

	tokens := loader.seen()
	if tokens[0] != "old-token" || tokens[1] != "new-token" {
		t.Errorf("loader saw tokens %v, want [old-token new-token]", tokens)
	}
}
