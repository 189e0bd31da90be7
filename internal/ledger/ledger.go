package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/config"
	"github.com/yourusername/race-reels/internal/database"
)

// Ledgers holds the ledger implementations for the configured backend
type Ledgers struct {
	Sightings SightingLedger
	Status    StatusLedger // nil unless status tracking is enabled

	closeFn func() error
	pingFn  func(ctx context.Context) error
}

// Ping checks backend connectivity. Backends without a connection always succeed.
func (l *Ledgers) Ping(ctx context.Context) error {
	if l == nil || l.pingFn == nil {
		return nil
	}
	return l.pingFn(ctx)
}

// Close releases the backend connection
func (l *Ledgers) Close() error {
	if l == nil || l.closeFn == nil {
		return nil
	}
	return l.closeFn()
}

func postgresLedgers(db *database.DB) *Ledgers {
	return &Ledgers{
		Sightings: NewPostgresSightingLedger(db),
		Status:    NewPostgresStatusLedger(db),
		closeFn:   db.Close,
		pingFn:    db.HealthCheck,
	}
}

// Open connects to the configured ledger backend and returns its ledgers
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Ledgers, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithFields(logrus.Fields{
		"component": "ledger",
		"backend":   cfg.Ledger.Backend,
	})

	var ledgers *Ledgers
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		db, err := database.NewDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		ledgers = postgresLedgers(db)

	case config.LedgerBackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		ledgers = &Ledgers{
			Sightings: NewSQLiteSightingLedger(db),
			Status:    NewSQLiteStatusLedger(db),
			closeFn:   db.Close,
			pingFn:    db.PingContext,
		}

	case config.LedgerBackendDynamoDB:
		client, err := NewDynamoDBClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		ledgers = &Ledgers{
			Sightings: NewDynamoDBSightingLedger(client, cfg.DynamoDB.SightingTable, cfg.DynamoDB.EventIndex),
			Status:    NewDynamoDBStatusLedger(client, cfg.DynamoDB.StatusTable),
		}

	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}

	if !cfg.Status.Enabled {
		ledgers.Status = nil
	}

	log.WithField("status_tracking", cfg.Status.Enabled).Info("Ledger opened")
	return ledgers, nil
}
