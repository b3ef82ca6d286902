// Package store selects the core.Store backend named by configuration.
package store

import (
	"context"
	"fmt"

	"uniform-tracker/internal/config"
	"uniform-tracker/internal/core"
	"uniform-tracker/internal/db"
	"uniform-tracker/internal/store/firestore"
	"uniform-tracker/internal/store/memstore"
	"uniform-tracker/internal/store/postgres"

	"github.com/sirupsen/logrus"
)

// Open connects the configured backend. The returned close func releases its
// connections and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (core.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("database: %w", err)
		}
		logger.WithField("backend", cfg.StoreBackend).Info("store connected")
		return postgres.New(pool), pool.Close, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredential)
		if err != nil {
			return nil, func() {}, fmt.Errorf("firestore: %w", err)
		}
		logger.WithFields(logrus.Fields{"backend": cfg.StoreBackend, "project": cfg.FirestoreProjectID}).Info("store connected")
		return firestore.New(client), func() { _ = client.Close() }, nil

	case config.BackendMemory:
		logger.WithField("backend", cfg.StoreBackend).Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
