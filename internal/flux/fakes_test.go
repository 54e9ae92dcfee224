package flux

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
)

// Hand-written fakes for the backend interfaces. Backend calls run on store
// goroutines, so every fake guards its fields with a mutex.

var errTransient = errors.New("connection reset")

type fakeAuth struct {
	mu        sync.Mutex
	role      model.Role // given to users signing in; RoleUser when empty
	user      *model.User
	loginErr  error
	logoutErr error
	logins    int
	listeners map[int]func(*model.User)
	nextID    int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{listeners: make(map[int]func(*model.User))}
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*model.User, error) {
	f.mu.Lock()
	f.logins++
	if f.loginErr != nil {
		err := f.loginErr
		f.mu.Unlock()
		return nil, err
	}
	role := f.role
	if role == "" {
		role = model.RoleUser
	}
	u := &model.User{UID: "u-" + email, DisplayName: "Ada", Email: email, Role: role}
	f.mu.Unlock()
	f.set(u)
	return u, nil
}

func (f *fakeAuth) Register(_ context.Context, email, _, name string) (*model.User, error) {
	u := &model.User{UID: "u-" + email, DisplayName: name, Email: email, Role: model.RoleUser}
	f.set(u)
	return u, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	err := f.logoutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.set(nil)
	return nil
}

func (f *fakeAuth) OnAuthStateChange(fn func(*model.User)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = fn
	u := f.user
	f.mu.Unlock()

	fn(u)
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeAuth) set(u *model.User) {
	f.mu.Lock()
	f.user = u
	fns := make([]func(*model.User), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (f *fakeAuth) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

type fakeProviderAuth struct {
	*fakeAuth
}

func (f fakeProviderAuth) LoginWithProvider(_ context.Context, provider, code string) (*model.User, error) {
	if code != "good" {
		return nil, apperror.Unauthorized(provider + " sign-in failed")
	}
	u := &model.User{UID: "gh-1", DisplayName: "octocat", Role: model.RoleUser}
	f.set(u)
	return u, nil
}

type fakePosts struct {
	mu        sync.Mutex
	posts     []model.Post
	calls     int
	lists     int
	failList  int   // transient List failures before succeeding
	nilList   bool  // List returns nil, nil
	err       error // returned by every call when set
	gate      chan struct{}
	seq       int
	created   []string // ids handed out by Create, in order
	lastActor string
}

func (f *fakePosts) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakePosts) Create(ctx context.Context, draft model.Post) (*model.Post, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	p := draft
	p.ID = fmt.Sprintf("post-%d", f.seq)
	f.created = append(f.created, p.ID)
	p.CreatedAt = time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC)
	f.posts = slices.Insert(f.posts, 0, p)
	return &p, nil
}

func (f *fakePosts) List(ctx context.Context) ([]model.Post, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	if f.failList > 0 {
		f.failList--
		return nil, errTransient
	}
	if f.nilList {
		return nil, nil
	}
	return slices.Clone(f.posts), nil
}

func (f *fakePosts) Update(_ context.Context, actorID, id string, patch model.PostPatch) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastActor = actorID
	if f.err != nil {
		return nil, f.err
	}
	i := slices.IndexFunc(f.posts, func(p model.Post) bool { return p.ID == id })
	if i < 0 {
		return nil, apperror.NotFound("post", id)
	}
	if patch.Content != nil {
		f.posts[i].Content = *patch.Content
	}
	p := f.posts[i]
	return &p, nil
}

func (f *fakePosts) Delete(_ context.Context, actorID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastActor = actorID
	if f.err != nil {
		return f.err
	}
	n := len(f.posts)
	f.posts = slices.DeleteFunc(f.posts, func(p model.Post) bool { return p.ID == id })
	if len(f.posts) == n {
		return apperror.NotFound("post", id)
	}
	return nil
}

func (f *fakePosts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTasks struct {
	mu      sync.Mutex
	tasks   []model.Task
	seq     int
	err     error
	nilList bool
	gate    chan struct{}
}

func (f *fakeTasks) Create(ctx context.Context, t model.Task) (*model.Task, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	t.ID = fmt.Sprintf("t%d", f.seq)
	f.tasks = append(f.tasks, t)
	return &t, nil
}

func (f *fakeTasks) List(_ context.Context, userID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.nilList {
		return nil, nil
	}
	out := []model.Task{}
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Update(_ context.Context, actorID, id string, patch model.TaskPatch) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	i := slices.IndexFunc(f.tasks, func(t model.Task) bool { return t.ID == id })
	if i < 0 {
		return nil, apperror.NotFound("task", id)
	}
	if f.tasks[i].UserID != actorID {
		return nil, apperror.Forbidden("you can only change your own tasks")
	}
	if patch.Status != nil {
		f.tasks[i].Status = *patch.Status
	}
	t := f.tasks[i]
	return &t, nil
}

func (f *fakeTasks) Delete(_ context.Context, actorID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if i := slices.IndexFunc(f.tasks, func(t model.Task) bool { return t.ID == id }); i >= 0 && f.tasks[i].UserID != actorID {
		return apperror.Forbidden("you can only delete your own tasks")
	}
	f.tasks = slices.DeleteFunc(f.tasks, func(t model.Task) bool { return t.ID == id })
	return nil
}

// fakeUsers is an admin backend that trusts the store's role check and only
// records who asked.
type fakeUsers struct {
	mu     sync.Mutex
	users  []model.User
	err    error
	actors []string
}

func (f *fakeUsers) List(_ context.Context, actorID string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors = append(f.actors, actorID)
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.users), nil
}

func (f *fakeUsers) Delete(_ context.Context, actorID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors = append(f.actors, actorID)
	if f.err != nil {
		return f.err
	}
	n := len(f.users)
	f.users = slices.DeleteFunc(f.users, func(u model.User) bool { return u.UID == id })
	if len(f.users) == n {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (f *fakeUsers) SetRole(_ context.Context, actorID, id string, role model.Role) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors = append(f.actors, actorID)
	if f.err != nil {
		return nil, f.err
	}
	i := slices.IndexFunc(f.users, func(u model.User) bool { return u.UID == id })
	if i < 0 {
		return nil, apperror.NotFound("user", id)
	}
	f.users[i].Role = role
	u := f.users[i]
	return &u, nil
}

func (f *fakeUsers) actorLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.actors)
}

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (m *memPersister) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, apperror.NotFound("key", key)
	}
	return slices.Clone(v), nil
}

func (m *memPersister) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = slices.Clone(value)
	return nil
}

// recorder collects every state a listener sees.
type recorder struct {
	mu     sync.Mutex
	states []AppState
}

func (r *recorder) listen(s AppState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []AppState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

type harness struct {
	d     *Dispatcher
	store *Store
	acts  *Actions
	auth  *fakeAuth
	posts *fakePosts
	tasks *fakeTasks
	users *fakeUsers
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		d:     NewDispatcher(nil),
		auth:  newFakeAuth(),
		posts: &fakePosts{},
		tasks: &fakeTasks{},
		users: &fakeUsers{},
	}
	opts := Options{
		Auth:         h.auth,
		Posts:        h.posts,
		Tasks:        h.tasks,
		Users:        h.users,
		CallTimeout:  time.Second,
		RetryBackoff: time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.store = NewStore(h.d, opts)
	h.acts = NewActions(h.d)
	t.Cleanup(h.store.Close)
	return h
}

// signIn logs in through the store and waits for the call to settle.
func (h *harness) signIn(t *testing.T) model.User {
	t.Helper()
	h.acts.Login("ada@example.com", "secret")
	h.store.Wait()
	st := h.store.GetState()
	if st.CurrentUser == nil {
		t.Fatalf("sign-in failed: %q", st.Error)
	}
	return *st.CurrentUser
}

// signInAdmin is signIn with the admin role.
func (h *harness) signInAdmin(t *testing.T) model.User {
	t.Helper()
	h.auth.mu.Lock()
	h.auth.role = model.RoleAdmin
	h.auth.mu.Unlock()
	return h.signIn(t)
}
