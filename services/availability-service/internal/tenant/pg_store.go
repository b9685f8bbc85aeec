package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tenantbook/reservations/libs/db"
)

// PostgresStore keeps each store's configuration as a JSONB document.
//
//	CREATE TABLE store_configs (
//		store_id   text PRIMARY KEY,
//		config     jsonb NOT NULL,
//		updated_at timestamptz NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, storeID string) (StoreConfig, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT config
		FROM store_configs
		WHERE store_id = $1
	`, storeID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoreConfig{}, ErrNotFound
	}
	if err != nil {
		return StoreConfig{}, err
	}

	var cfg StoreConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return StoreConfig{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, storeID, err)
	}
	cfg.ID = storeID
	if err := Validate(cfg); err != nil {
		return StoreConfig{}, fmt.Errorf("%s: %w", storeID, err)
	}
	return cfg, nil
}

func (s *PostgresStore) Put(ctx context.Context, cfg StoreConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO store_configs (store_id, config)
		VALUES ($1, $2)
		ON CONFLICT (store_id) DO UPDATE
		SET config = EXCLUDED.config,
			updated_at = now()
	`, cfg.ID, raw)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT store_id
		FROM store_configs
		ORDER BY store_id ASC
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
