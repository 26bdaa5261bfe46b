package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
)

// fakeRemote serves pages out of an in-memory slice. When hold is set every
// FetchPage hands a release channel to the test and waits for it to close.
type fakeRemote struct {
	mu         sync.Mutex
	users      []entity.User
	total      int // overrides len(users) when > 0
	listErr    error
	mutateErr  error
	listCalls  []int
	mutations  int
	hold       chan chan struct{}
	removeHold chan chan struct{}
}

func seed(ids ...int64) []entity.User {
	out := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.User{
			ID:       id,
			Username: fmt.Sprintf("user%d", id),
			Email:    fmt.Sprintf("user%d@example.com", id),
		})
	}
	return out
}

func seedRange(from, to int64) []entity.User {
	ids := make([]int64, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return seed(ids...)
}

func newFakeRemote(users []entity.User) *fakeRemote {
	return &fakeRemote{users: users}
}

func (f *fakeRemote) FetchPage(ctx context.Context, limit, offset int) (*entity.Page, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, offset)
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		release := make(chan struct{})
		hold <- release
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := min(offset, len(f.users))
	end := min(offset+limit, len(f.users))
	total := len(f.users)
	if f.total > 0 {
		total = f.total
	}
	return &entity.Page{Users: append([]entity.User(nil), f.users[start:end]...), Total: total}, nil
}

func (f *fakeRemote) FetchByID(ctx context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			c := u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %d not found", id)
}

func (f *fakeRemote) Create(ctx context.Context, data entity.CreateUserData) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	var next int64 = 1
	for _, u := range f.users {
		if u.ID >= next {
			next = u.ID + 1
		}
	}
	u := entity.User{ID: next, Username: data.Username, Email: data.Email, Phone: data.Phone}
	f.users = append(f.users, u)
	return &u, nil
}

func (f *fakeRemote) Update(ctx context.Context, id int64, data entity.CreateUserData) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].Username = data.Username
			f.users[i].Email = data.Email
			c := f.users[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %d not found", id)
}

func (f *fakeRemote) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	hold := f.removeHold
	f.mu.Unlock()
	if hold != nil {
		release := make(chan struct{})
		hold <- release
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	if f.mutateErr != nil {
		return f.mutateErr
	}
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) setHold(ch chan chan struct{}) {
	f.mu.Lock()
	f.hold = ch
	f.mu.Unlock()
}

func (f *fakeRemote) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func (f *fakeRemote) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.listCalls...)
}

func (f *fakeRemote) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

func ids(users []entity.User) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}
