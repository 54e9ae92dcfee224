package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/auth"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	nextID   int
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{accounts: make(map[string]*model.Account)}
}

func (f *fakeUserRepo) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if a.Email != "" && strings.EqualFold(existing.Email, a.Email) {
			return apperror.Conflict("user", a.Email)
		}
		if a.GitHubID != 0 && existing.GitHubID == a.GitHubID {
			return apperror.Conflict("user", fmt.Sprint(a.GitHubID))
		}
	}
	f.nextID++
	a.UID = fmt.Sprintf("user-%d", f.nextID)
	if a.Role == "" {
		a.Role = model.RoleUser
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.accounts[a.UID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *a
	return &c, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	return f.find(func(a *model.Account) bool { return strings.EqualFold(a.Email, email) }, email)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, id int64) (*model.Account, error) {
	return f.find(func(a *model.Account) bool { return a.GitHubID == id }, fmt.Sprint(id))
}

func (f *fakeUserRepo) find(match func(*model.Account) bool, key string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if match(a) {
			c := *a
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) Update(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[a.UID]; !ok {
		return apperror.NotFound("user", a.UID)
	}
	stored := *a
	f.accounts[a.UID] = &stored
	return nil
}

// List returns accounts in creation order, which matches uid order here.
func (f *fakeUserRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Account{}
	for i := 1; i <= f.nextID; i++ {
		if a, ok := f.accounts[fmt.Sprintf("user-%d", i)]; ok {
			out = append(out, *a)
		}
	}
	if opts.Offset > 0 {
		out = out[min(opts.Offset, len(out)):]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.accounts, id)
	return nil
}

// seed creates an account with the given role and returns it.
func (f *fakeUserRepo) seed(t interface{ Fatalf(string, ...any) }, email string, role model.Role) *model.Account {
	a := &model.Account{User: model.User{DisplayName: email, Email: email, Role: role}}
	if err := f.Create(context.Background(), a); err != nil {
		t.Fatalf("seeding %s: %v", email, err)
	}
	return a
}

// fakeKV is an in-memory repository.KVRepository.
type fakeKV struct {
	mu      sync.Mutex
	values  map[string][]byte
	saveErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string][]byte)}
}

func (f *fakeKV) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return nil, apperror.NotFound("key", key)
	}
	return v, nil
}

func (f *fakeKV) Save(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

// fakePostRepo keeps posts in insertion order; List reverses it.
type fakePostRepo struct {
	mu      sync.Mutex
	posts   []model.Post
	nextID  int
	listErr error
	lastOpt repository.ListOptions
}

func (f *fakePostRepo) Create(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = fmt.Sprintf("post-%d", f.nextID)
	p.CreatedAt = time.Now()
	f.posts = append(f.posts, *p)
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperror.NotFound("post", id)
}

func (f *fakePostRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpt = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Post, 0, len(f.posts))
	for i := len(f.posts) - 1; i >= 0; i-- {
		out = append(out, f.posts[i])
	}
	return out, nil
}

func (f *fakePostRepo) Update(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.posts {
		if f.posts[i].ID == p.ID {
			p.UpdatedAt = time.Now()
			f.posts[i] = *p
			return nil
		}
	}
	return apperror.NotFound("post", p.ID)
}

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.posts {
		if f.posts[i].ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("post", id)
}

// fakeTaskRepo is an in-memory repository.TaskRepository.
type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  []model.Task
	nextID int
}

func (f *fakeTaskRepo) Create(_ context.Context, t *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = fmt.Sprintf("task-%d", f.nextID)
	t.CreatedAt = time.Now()
	f.tasks = append(f.tasks, *t)
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("task", id)
}

func (f *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Task{}
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) UpdateStatus(_ context.Context, id string, status model.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			return nil
		}
	}
	return apperror.NotFound("task", id)
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("task", id)
}

// =========================================================================
// FAKE OAUTH PROVIDER
// =========================================================================

type fakeProvider struct {
	profiles map[string]*auth.Profile // keyed by authorization code
}

func (f *fakeProvider) Name() string { return "github" }

func (f *fakeProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.Profile, error) {
	p, ok := f.profiles[code]
	if !ok {
		return nil, errors.New("bad_verification_code")
	}
	c := *p
	return &c, nil
}
