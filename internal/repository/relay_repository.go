package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
)

type RelayRepository struct {
	db *sql.DB
}

func NewRelayRepository(db *sql.DB) *RelayRepository {
	return &RelayRepository{db: db}
}

const relayColumns = `id, uuid, user_id, source_link, target_link, active, created_at, updated_at`

func scanRelay(row interface{ Scan(...any) error }) (*models.RelayMapping, error) {
	var m models.RelayMapping
	var active int
	if err := row.Scan(&m.ID, &m.UUID, &m.UserID, &m.SourceLink, &m.TargetLink, &active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Active = active != 0
	return &m, nil
}

// Upsert stores the mapping for its owner, replacing any previous one. The
// public uuid survives replacement so external references stay stable.
func (r *RelayRepository) Upsert(ctx context.Context, mapping *models.RelayMapping) (*models.RelayMapping, error) {
	if mapping.UUID == "" {
		mapping.UUID = uuid.NewString()
	}
	active := 0
	if mapping.Active {
		active = 1
	}
	const query = `
INSERT INTO relay_mappings (uuid, user_id, source_link, target_link, active)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE source_link = VALUES(source_link), target_link = VALUES(target_link), active = VALUES(active), updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, mapping.UUID, mapping.UserID, mapping.SourceLink, mapping.TargetLink, active); err != nil {
		return nil, fmt.Errorf("upsert relay mapping: %w", err)
	}
	return r.FindByUserID(ctx, mapping.UserID)
}

func (r *RelayRepository) FindByUserID(ctx context.Context, userID int64) (*models.RelayMapping, error) {
	query := `SELECT ` + relayColumns + ` FROM relay_mappings WHERE user_id = ?`
	mapping, err := scanRelay(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan relay mapping: %w", err)
	}
	return mapping, nil
}

func (r *RelayRepository) ListActive(ctx context.Context) ([]models.RelayMapping, error) {
	query := `SELECT ` + relayColumns + ` FROM relay_mappings WHERE active = 1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active relay mappings: %w", err)
	}
	defer rows.Close()

	var mappings []models.RelayMapping
	for rows.Next() {
		m, err := scanRelay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relay row: %w", err)
		}
		mappings = append(mappings, *m)
	}
	return mappings, rows.Err()
}
