package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/repo"
)

type record struct {
	action string
	userID int64
	failed bool
}

type recorder struct {
	mu      sync.Mutex
	records []record
}

func (r *recorder) Record(ctx context.Context, action string, userID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record{action: action, userID: userID, failed: err != nil})
}

func newService(t *testing.T, f *fakeRemote, mode Mode) (*UserService, *clockwork.FakeClock, *recorder) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	list := newList(t, f, mode, Options{Clock: clock})
	rec := &recorder{}
	return NewUserService(f, list, rec, nil), clock, rec
}

func TestRemoveSuccessRefetchesWithoutUser(t *testing.T) {
	f := newFakeRemote(seed(5, 7, 9))
	svc, clock, rec := newService(t, f, ModeIncremental)

	require.NoError(t, svc.Remove(context.Background(), 7))

	s := svc.List().Snapshot()
	assert.Equal(t, []int64{5, 9}, ids(s.Users))
	assert.Empty(t, s.Pending)
	require.NotNil(t, s.Notice)
	assert.Equal(t, "User deleted successfully!", s.Notice.Message)
	assert.Equal(t, []record{{action: "delete", userID: 7}}, rec.records)

	clock.Advance(NoticeTTL)
	require.Eventually(t, func() bool { return svc.List().Snapshot().Notice == nil }, time.Second, 5*time.Millisecond)
}

func TestRemoveFailureKeepsListAndClearsTicket(t *testing.T) {
	f := newFakeRemote(seed(5, 7, 9))
	svc, _, rec := newService(t, f, ModeIncremental)
	f.mutateErr = &userrepo.RequestError{Op: "delete", Status: 500, Message: "Failed to delete user with id 7"}

	err := svc.Remove(context.Background(), 7)
	require.ErrorIs(t, err, userrepo.ErrRequestFailed)

	s := svc.List().Snapshot()
	assert.Equal(t, []int64{5, 7, 9}, ids(s.Users))
	assert.Empty(t, s.Pending)
	assert.Nil(t, s.Notice)
	assert.Len(t, f.calls(), 1)
	assert.Equal(t, []record{{action: "delete", userID: 7, failed: true}}, rec.records)
}

func TestRemoveWhilePendingIsRefused(t *testing.T) {
	f := newFakeRemote(seed(5, 7, 9))
	svc, _, _ := newService(t, f, ModeIncremental)
	ctx := context.Background()

	hold := make(chan chan struct{})
	f.mu.Lock()
	f.removeHold = hold
	f.mu.Unlock()

	first := run(func() error { return svc.Remove(ctx, 7) })
	release := <-hold

	s := svc.List().Snapshot()
	require.Len(t, s.Pending, 1)
	assert.Equal(t, Ticket{UserID: 7, Action: ActionDelete, OpenedAt: s.Pending[0].OpenedAt}, s.Pending[0])
	assert.ErrorIs(t, svc.Remove(ctx, 7), ErrMutationPending)
	_, err := svc.Update(ctx, 7, entity.CreateUserData{Username: "x", Email: "x@y.io"})
	assert.ErrorIs(t, err, ErrMutationPending)

	close(release)
	require.NoError(t, <-first)
	assert.Empty(t, svc.List().Snapshot().Pending)
	assert.Equal(t, 1, f.mutationCount())
}

func TestCreateValidatesBeforeAnyCall(t *testing.T) {
	f := newFakeRemote(seed(1))
	svc, _, rec := newService(t, f, ModeIncremental)

	_, err := svc.Create(context.Background(), entity.CreateUserData{Email: "nope"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Name is required", ve.Fields["username"])
	assert.Equal(t, "Email is invalid", ve.Fields["email"])

	_, err = svc.Update(context.Background(), 1, entity.CreateUserData{Username: "x"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Zero(t, f.mutationCount())
	assert.Len(t, f.calls(), 1)
	assert.Empty(t, rec.records)
}

func TestCreateRestartsListFromFirstPage(t *testing.T) {
	f := newFakeRemote(seedRange(1, 25))
	svc, _, rec := newService(t, f, ModeIncremental)
	ctx := context.Background()
	require.NoError(t, svc.List().LoadMore(ctx))
	before := svc.List().Snapshot()
	require.Equal(t, 20, before.Cursor)

	u, err := svc.Create(ctx, entity.CreateUserData{Username: "neo", Email: "neo@zion.io"})
	require.NoError(t, err)
	assert.Equal(t, int64(26), u.ID)

	s := svc.List().Snapshot()
	assert.NotEqual(t, before.Session, s.Session)
	assert.Equal(t, 10, s.Cursor)
	assert.Equal(t, 26, s.Total)
	require.NotNil(t, s.Notice)
	assert.Equal(t, "User created successfully!", s.Notice.Message)
	assert.Equal(t, []record{{action: "create", userID: 26}}, rec.records)
}

func TestUpdateRefetchesCurrentPage(t *testing.T) {
	f := newFakeRemote(seedRange(1, 25))
	svc, _, _ := newService(t, f, ModePaged)
	ctx := context.Background()
	require.NoError(t, svc.List().GoToPage(ctx, 1))

	_, err := svc.Update(ctx, 12, entity.CreateUserData{Username: "renamed", Email: "renamed@example.com"})
	require.NoError(t, err)

	s := svc.List().Snapshot()
	assert.Equal(t, 1, s.PageIndex)
	assert.Equal(t, "renamed", s.Users[1].Username)
	assert.Empty(t, s.Pending)
	require.NotNil(t, s.Notice)
	assert.Equal(t, "User updated successfully!", s.Notice.Message)
}

func TestRemoveLastUserOnLastPageMovesBack(t *testing.T) {
	f := newFakeRemote(seedRange(1, 11))
	svc, _, _ := newService(t, f, ModePaged)
	ctx := context.Background()
	require.NoError(t, svc.List().GoToPage(ctx, 1))
	require.Equal(t, []int64{11}, ids(svc.List().Snapshot().Users))

	require.NoError(t, svc.Remove(ctx, 11))

	s := svc.List().Snapshot()
	assert.Equal(t, 0, s.PageIndex)
	assert.Equal(t, 1, s.PageCount)
	assert.Equal(t, 10, s.Total)
	assert.Equal(t, seedRangeIDs(1, 10), ids(s.Users))
	assert.False(t, s.IsLoading)
	assert.Equal(t, []int{0, 10, 10, 0}, f.calls())
}

func TestMutationsWithoutMountedList(t *testing.T) {
	f := newFakeRemote(seed(3))
	svc := NewUserService(f, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, entity.CreateUserData{Username: "a", Email: "a@b.io"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, 3))
	assert.Empty(t, f.calls())

	u, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "a", u.Username)
}

func TestServiceDismissNotice(t *testing.T) {
	f := newFakeRemote(seed(5, 7))
	svc, _, _ := newService(t, f, ModeIncremental)
	require.NoError(t, svc.Remove(context.Background(), 5))
	require.NotNil(t, svc.List().Snapshot().Notice)

	svc.DismissNotice()
	assert.Nil(t, svc.List().Snapshot().Notice)
}

func seedRangeIDs(from, to int64) []int64 {
	return ids(seedRange(from, to))
}
