package flux

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/socialboard/internal/model"
)

const (
	defaultCallTimeout  = 10 * time.Second
	defaultRetryBackoff = 200 * time.Millisecond
	persistTimeout      = 2 * time.Second
)

// Options configure a Store. Every backend is optional; actions that need a
// missing backend fail with an error message instead of panicking.
type Options struct {
	Auth      AuthBackend
	Posts     PostBackend
	Tasks     TaskBackend
	Users     UserBackend // admin console; nil disables it
	Persister Persister   // nil disables the persisted snapshot
	Logger    *slog.Logger

	CallTimeout  time.Duration // per backend call; zero uses 10s
	FetchRetries int           // extra attempts for FETCH_POSTS / FETCH_TASKS
	RetryBackoff time.Duration // first retry delay; zero uses 200ms
}

// Listener observes completed state transitions.
type Listener func(AppState)

type subscription struct {
	id      uint64
	fn      Listener
	fields  Field
	removed atomic.Bool
}

// SubscribeOption refines a subscription.
type SubscribeOption func(*subscription)

// WithFields limits a listener to transitions that change at least one of
// fields. Without it a listener sees every transition.
func WithFields(fields Field) SubscribeOption {
	return func(s *subscription) {
		s.fields = fields
	}
}

type transition struct {
	action     ActionType
	prev, next AppState
}

// Store owns the AppState. It is the single handler it registers with its
// Dispatcher: every action goes through HandleAction, which either reduces it
// into a new snapshot right away or starts a backend call whose outcome is
// dispatched as a follow-up action.
//
// HOW A TRANSITION TRAVELS
//
// commit clones the current state, lets the reducer edit the clone and, if
// the reducer reports a change, swaps the clone in under the mutex. The
// (prev, next) pair is appended to a pending queue. Whoever finds the queue
// idle becomes the drainer: it releases the mutex, saves the snapshot and
// calls every listener for each queued transition, then loops until the
// queue is empty. Nobody else touches listeners while a drainer is running.
//
//	caller ──commit──▶ state swapped ──▶ pending ──drainer──▶ persist, listeners
//
// This gives two guarantees:
//
//   - Transitions reach listeners in exactly the order they were committed,
//     each listener once per transition, in subscription order.
//   - A listener may dispatch. Its follow-up is committed right away (so
//     GetState sees it) and queued behind the transition being delivered
//     instead of deadlocking on the mutex.
//
// DELIVERY IS NOT ALWAYS ON THE CALLER'S GOROUTINE
//
// Backend completions commit from their own goroutines. If one of them is
// draining when a caller commits a synchronous action, the caller's
// transition is applied immediately but delivered by that drainer, after the
// transitions ahead of it. HandleAction can then return before the caller's
// listeners have run. Go has no goroutine identity to tell such a caller
// apart from a listener re-entering the store, and waiting in the re-entrant
// case would deadlock, so the store keeps ordering and leaves timing alone.
// When no backend call is delivering, which is the case for every purely
// local sequence of actions, listeners have run by the time HandleAction
// returns.
type Store struct {
	dispatcher *Dispatcher
	token      Token

	auth      AuthBackend
	posts     PostBackend
	tasks     TaskBackend
	users     UserBackend
	persister Persister
	logger    *slog.Logger

	callTimeout time.Duration
	retries     int
	backoff     time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	settled  *sync.Cond // signalled when inflight drops to zero
	inflight int        // backend calls whose outcome is not applied yet
	state    AppState
	history  []string
	cursor   int
	subs     []*subscription
	nextSub  uint64
	pending  []transition
	draining bool
	started  bool
	closed   bool
	stopAuth func()
}

// NewStore creates a Store in the initial signed-out state and registers its
// handler with d. d may be nil, in which case actions must be passed to
// HandleAction directly.
func NewStore(d *Dispatcher, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.FetchRetries < 0 {
		opts.FetchRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		dispatcher:  d,
		auth:        opts.Auth,
		posts:       opts.Posts,
		tasks:       opts.Tasks,
		users:       opts.Users,
		persister:   opts.Persister,
		logger:      logger,
		callTimeout: opts.CallTimeout,
		retries:     opts.FetchRetries,
		backoff:     opts.RetryBackoff,
		ctx:         ctx,
		cancel:      cancel,
		state:       InitialState(),
		history:     []string{"/"},
	}
	s.settled = sync.NewCond(&s.mu)
	if d != nil {
		s.token = d.Register(s.HandleAction)
	}
	return s
}

// Start runs the store's one-time startup work: it restores the persisted
// snapshot, mirrors the backend session into the state and loads the feed.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("flux: store already started")
	}
	s.started = true
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.Rehydrate(ctx); err != nil {
			s.logger.Warn("store: ignoring persisted state", slog.String("error", err.Error()))
		}
	}

	if s.auth != nil {
		stop := s.auth.OnAuthStateChange(func(u *model.User) {
			s.dispatch(AuthStateChanged{User: u})
		})
		s.mu.Lock()
		s.stopAuth = stop
		s.mu.Unlock()
	}

	if s.posts != nil {
		s.dispatch(FetchPosts{})
	}
	return nil
}

// Close stops the auth subscription, cancels in-flight backend calls, waits
// for their completions to be applied and unregisters from the dispatcher.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stopAuth
	s.stopAuth = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.cancel()
	s.Wait()
	if s.dispatcher != nil {
		s.dispatcher.Unregister(s.token)
	}
}

// Wait blocks until no backend call is in flight and every outcome has been
// applied. Calls started by other goroutines while Wait is blocked extend the
// wait. Any number of goroutines may Wait at once.
func (s *Store) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.settled.Wait()
	}
}

// GetState returns a copy of the current snapshot.
func (s *Store) GetState() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to be called after every completed transition with
// a copy of the new state. The returned func unsubscribes; calling it more
// than once is harmless.
func (s *Store) Subscribe(fn Listener, opts ...SubscribeOption) (unsubscribe func()) {
	sub := &subscription{fn: fn, fields: FieldAll}
	for _, opt := range opts {
		opt(sub)
	}

	s.mu.Lock()
	s.nextSub++
	sub.id = s.nextSub
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.removed.Store(true)
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(x *subscription) bool { return x.id == sub.id })
		})
	}
}

// dispatch sends a follow-up action through the dispatcher so every handler
// sees it, or straight to HandleAction when the store has no dispatcher.
func (s *Store) dispatch(a Action) {
	if a == nil {
		return
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(a)
		return
	}
	s.HandleAction(a)
}

// commit applies reduce to a copy of the current state. If reduce reports a
// change, the copy becomes the new snapshot and the transition is queued for
// persistence and notification.
func (s *Store) commit(kind ActionType, reduce func(*AppState) bool) bool {
	s.mu.Lock()
	next := s.state.Clone()
	if !reduce(&next) {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	s.state = next
	s.pending = append(s.pending, transition{action: kind, prev: prev, next: next})

	// Someone up the stack (or on another goroutine) is already delivering;
	// it will pick this transition up in order.
	if s.draining {
		s.mu.Unlock()
		return true
	}

	s.draining = true
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		subs := slices.Clone(s.subs)
		s.mu.Unlock()

		for _, t := range batch {
			s.persist(t.next)
			s.notify(t, subs)
		}

		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
	return true
}

func (s *Store) notify(t transition, subs []*subscription) {
	var changed Field
	computed := false
	for _, sub := range subs {
		if sub.removed.Load() {
			continue
		}
		if sub.fields != FieldAll {
			if !computed {
				changed = Changed(t.prev, t.next)
				computed = true
			}
			if sub.fields&changed == 0 {
				continue
			}
		}
		s.call(sub, t)
	}
}

func (s *Store) call(sub *subscription, t transition) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("store: listener panicked",
				slog.Uint64("subscription", sub.id),
				slog.String("action", string(t.action)),
				slog.Any("panic", p),
			)
		}
	}()
	sub.fn(t.next.Clone())
}

func (s *Store) persist(state AppState) {
	if s.persister == nil {
		return
	}
	data, err := EncodeSnapshot(state, time.Now())
	if err != nil {
		s.logger.Error("store: encoding snapshot", slog.String("error", err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, SnapshotKey, data); err != nil {
		s.logger.Error("store: saving snapshot", slog.String("error", err.Error()))
	}
}

// async commits start (if any), then runs call on its own goroutine and
// dispatches the action it returns. If call panics, fallback is dispatched
// instead so the operation still settles.
func (s *Store) async(start Action, call func(context.Context) Action, fallback Action) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("store: closed, dropping backend call")
		return
	}
	s.inflight++
	s.mu.Unlock()

	s.dispatch(start)

	go func() {
		defer s.settle()
		ctx, cancel := context.WithTimeout(s.ctx, s.callTimeout)
		defer cancel()
		s.dispatch(s.safeCall(ctx, call, fallback))
	}()
}

// settle marks one backend call as applied and wakes Wait when it was the
// last one.
func (s *Store) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.settled.Broadcast()
	}
}

func (s *Store) safeCall(ctx context.Context, call func(context.Context) Action, fallback Action) (result Action) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("store: backend call panicked", slog.Any("panic", p))
			result = fallback
		}
	}()
	return call(ctx)
}

func (s *Store) currentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentUser == nil {
		return nil
	}
	u := *s.state.CurrentUser
	return &u
}
