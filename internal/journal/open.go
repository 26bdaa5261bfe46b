package journal

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/journal/repo"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/database"
)

// Open connects to the journal database and creates its table when missing.
// Without a DSN it returns a nil Service and a nil DB.
func Open(ctx context.Context, cfg database.Config, logger *zap.SugaredLogger) (*Service, *sqlx.DB, error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	r := repo.NewRepo(db)
	if err := r.EnsureTable(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("journal table: %w", err)
	}
	return NewService(r, nil, logger), db, nil
}

// AsRecorder returns s, or Noop when s is nil.
func AsRecorder(s *Service) Recorder {
	if s == nil {
		return Noop{}
	}
	return s
}
