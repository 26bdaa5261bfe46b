package user

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/journal"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/metrics"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrMutationPending  = errors.New("a mutation for this user is already in flight")
)

const (
	msgCreated = "User created successfully!"
	msgUpdated = "User updated successfully!"
	msgDeleted = "User deleted successfully!"
)

// Remote is the full set of calls against the remote user service.
type Remote interface {
	Fetcher
	FetchByID(ctx context.Context, id int64) (*entity.User, error)
	Create(ctx context.Context, data entity.CreateUserData) (*entity.User, error)
	Update(ctx context.Context, id int64, data entity.CreateUserData) (*entity.User, error)
	Remove(ctx context.Context, id int64) error
}

// UserService coordinates mutations: it validates input, marks rows as
// pending, calls the remote and invalidates the list on success.
type UserService struct {
	remote  Remote
	list    *Orchestrator
	journal journal.Recorder
	logger  *zap.SugaredLogger
}

func NewUserService(r Remote, list *Orchestrator, rec journal.Recorder, logger *zap.SugaredLogger) *UserService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if list == nil {
		list = NewOrchestrator(r, Options{Logger: logger})
	}
	if rec == nil {
		rec = journal.Noop{}
	}
	return &UserService{remote: r, list: list, journal: rec, logger: logger}
}

// List returns the orchestrator the service invalidates.
func (s *UserService) List() *Orchestrator { return s.list }

// Get fetches one user, typically to fill the edit form.
func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	return s.remote.FetchByID(ctx, id)
}

// Create validates data before any network call, creates the user and
// restarts the list from its first page.
func (s *UserService) Create(ctx context.Context, data entity.CreateUserData) (*entity.User, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	u, err := s.remote.Create(ctx, data)
	s.finish(ctx, ActionCreate, idOf(u), err)
	if err != nil {
		return nil, err
	}
	s.list.Notices().Show(msgCreated)
	s.invalidate(s.list.Reset(ctx))
	return u, nil
}

// Update validates data, marks id as pending, updates and re-fetches the
// list in place.
func (s *UserService) Update(ctx context.Context, id int64, data entity.CreateUserData) (*entity.User, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	tickets := s.list.Tickets()
	if err := tickets.Open(id, ActionUpdate, s.list.Clock().Now()); err != nil {
		return nil, err
	}
	u, err := s.remote.Update(ctx, id, data)
	tickets.Close(id)
	s.finish(ctx, ActionUpdate, id, err)
	if err != nil {
		return nil, err
	}
	s.list.Notices().Show(msgUpdated)
	s.invalidate(s.list.Refresh(ctx))
	return u, nil
}

// Remove deletes id. Confirmation is the caller's job. On failure the cached
// list is left as it was.
func (s *UserService) Remove(ctx context.Context, id int64) error {
	tickets := s.list.Tickets()
	if err := tickets.Open(id, ActionDelete, s.list.Clock().Now()); err != nil {
		return err
	}
	err := s.remote.Remove(ctx, id)
	tickets.Close(id)
	s.finish(ctx, ActionDelete, id, err)
	if err != nil {
		return err
	}
	s.list.Notices().Show(msgDeleted)
	s.invalidate(s.list.Refresh(ctx))
	return nil
}

// DismissNotice clears the success notice early.
func (s *UserService) DismissNotice() { s.list.Notices().Dismiss() }

func (s *UserService) finish(ctx context.Context, action Action, id int64, err error) {
	metrics.ObserveMutation(string(action), err)
	s.journal.Record(ctx, string(action), id, err)
	if err != nil {
		s.logger.Warnw("mutation failed", "action", action, "user_id", id, "err", err)
		return
	}
	s.logger.Infow("mutation applied", "action", action, "user_id", id)
}

// invalidate logs a failed re-fetch; the message is already on the snapshot.
func (s *UserService) invalidate(err error) {
	if err != nil && !errors.Is(err, ErrNotMounted) {
		s.logger.Warnw("re-fetch after mutation failed", "err", err)
	}
}

func idOf(u *entity.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
