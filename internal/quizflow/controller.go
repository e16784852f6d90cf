package quizflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/models"
)

// ErrClosed is returned when dispatching to a closed controller
var ErrClosed = errors.New("quiz controller closed")

// DefaultFeedbackDelay is how long feedback stays on screen before the next question
const DefaultFeedbackDelay = 1200 * time.Millisecond

// Loader produces the next question for a user
type Loader interface {
	NextQuestion(ctx context.Context, userID string, lastID int64) (models.OptionSet, error)
}

// Recorder persists an answer
type Recorder interface {
	RecordAnswer(ctx context.Context, userID string, question models.Question, selected string) error
}

// Options wires a controller to its dependencies
type Options struct {
	Loader        Loader
	Recorder      Recorder
	FeedbackDelay time.Duration
	Logger        *logrus.Logger
}

// Controller runs one quiz session. Events are applied one at a time on a single
// goroutine; effects run on their own goroutines and report back through events.
type Controller struct {
	opts   Options
	logger *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	mu      sync.RWMutex
	state   State
	changed chan struct{}

	// timer is only touched by the loop goroutine
	timer *time.Timer

	// values is the most recent caller context, used only for its values
	values     atomic.Pointer[requestValues]
	lastActive atomic.Int64
	closeOnce  sync.Once
}

type requestValues struct {
	ctx context.Context
}

// valuesContext is cancelled with the controller but resolves values against
// the latest caller context
type valuesContext struct {
	context.Context
	values context.Context
}

func (v valuesContext) Value(key any) any {
	return v.values.Value(key)
}

// NewController starts a controller. Values carried by ctx (such as the caller's
// access token) are visible to the loader and recorder until Refresh replaces
// them; ctx cancellation is not propagated, use Close instead.
func NewController(ctx context.Context, opts Options) *Controller {
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = DefaultFeedbackDelay
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:    opts,
		logger:  opts.Logger.WithField("component", "quizflow"),
		ctx:     base,
		cancel:  cancel,
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
		changed: make(chan struct{}),
	}
	c.Refresh(ctx)

	go c.loop()
	return c
}

// Refresh makes the values of ctx visible to effects started from now on.
// Callers pass each request's context so a renewed access token takes over.
func (c *Controller) Refresh(ctx context.Context) {
	c.values.Store(&requestValues{ctx: context.WithoutCancel(ctx)})
	c.touch()
}

// Dispatch queues an event from the user side
func (c *Controller) Dispatch(ev Event) error {
	c.touch()
	if !c.post(ev) {
		return ErrClosed
	}
	return nil
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Wait blocks until pred holds for the current state, ctx ends, or the controller closes
func (c *Controller) Wait(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		c.mu.RLock()
		s, changed := c.state, c.changed
		c.mu.RUnlock()

		if pred(s) {
			return s, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return s, ctx.Err()
		case <-c.done:
			return c.State(), ErrClosed
		}
	}
}

// LastActive is the time of the most recent Dispatch
func (c *Controller) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Close stops the loop and cancels any pending timer and in-flight work.
// Nothing scheduled before Close runs after it returns.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
}

func (c *Controller) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Controller) post(ev Event) bool {
	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Controller) loop() {
	defer close(c.done)
	defer c.stopTimer()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			if c.ctx.Err() != nil {
				return
			}
			c.apply(ev)
		}
	}
}

func (c *Controller) apply(ev Event) {
	c.mu.Lock()
	next, effects := Reduce(c.state, ev)
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	for _, eff := range effects {
		c.run(eff)
	}
}

func (c *Controller) effectContext() context.Context {
	return valuesContext{Context: c.ctx, values: c.values.Load().ctx}
}

func (c *Controller) run(eff Effect) {
	switch eff := eff.(type) {
	case LoadQuestion:
		ctx := c.effectContext()
		go func() {
			set, err := c.opts.Loader.NextQuestion(ctx, eff.UserID, eff.LastID)
			if err != nil {
				c.logger.WithError(err).WithField("user_id", eff.UserID).Error("Failed to load question")
				c.post(QuestionFailed{Generation: eff.Generation, Err: err})
				return
			}
			c.post(QuestionLoaded{Generation: eff.Generation, Set: set})
		}()

	case RecordAnswer:
		ctx := c.effectContext()
		go func() {
			err := c.opts.Recorder.RecordAnswer(ctx, eff.UserID, eff.Question, eff.Selected)
			if err != nil {
				// the quiz moves on regardless
				c.logger.WithError(err).WithFields(logrus.Fields{
					"user_id":  eff.UserID,
					"vocab_id": eff.Question.Item.ID,
				}).Warn("Failed to record answer")
			}
			c.post(AnswerRecorded{Generation: eff.Generation, Err: err})
		}()

	case ScheduleNext:
		c.stopTimer()
		gen := eff.Generation
		c.timer = time.AfterFunc(c.opts.FeedbackDelay, func() {
			c.post(FeedbackElapsed{Generation: gen})
		})

	case CancelTimer:
		c.stopTimer()
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
