package journal

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/journal/entity"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/utilities"
)

// Recorder receives every mutation outcome. Implementations log their own
// failures; nothing is returned to the caller.
type Recorder interface {
	Record(ctx context.Context, action string, userID int64, err error)
}

// Store is the persistence the Service writes through.
type Store interface {
	Append(ctx context.Context, e *entity.Entry) error
	Recent(ctx context.Context, limit int) ([]entity.Entry, error)
}

// Service records mutation outcomes into a Store.
type Service struct {
	store  Store
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

func NewService(store Store, clock clockwork.Clock, logger *zap.SugaredLogger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, clock: clock, logger: logger}
}

func (s *Service) Record(ctx context.Context, action string, userID int64, err error) {
	e := &entity.Entry{
		ID:        utilities.NewKSUID(),
		Action:    action,
		UserID:    userID,
		Outcome:   entity.OutcomeOK,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err != nil {
		e.Outcome = entity.OutcomeError
		e.Message = err.Error()
	}
	// the request context may already be done once the response is written
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if aerr := s.store.Append(wctx, e); aerr != nil {
		s.logger.Warnw("journal append failed", "id", e.ID, "action", action, "user_id", userID, "err", aerr)
	}
}

// Recent returns up to limit entries, newest first. limit is capped at 100.
func (s *Service) Recent(ctx context.Context, limit int) ([]entity.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.store.Recent(ctx, limit)
}

// Noop discards everything. It is used when no database is configured.
type Noop struct{}

func (Noop) Record(context.Context, string, int64, error) {}
