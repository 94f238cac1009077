package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"
)

type ParticipantRepository interface {
	FindParticipantByID(ctx context.Context, id string) (*model.Participant, error)
}

type pgParticipantRepository struct {
	db *sql.DB
}

func NewPgParticipantRepository(db *sql.DB) ParticipantRepository {
	return &pgParticipantRepository{db: db}
}

func (r *pgParticipantRepository) FindParticipantByID(ctx context.Context, id string) (*model.Participant, error) {
	query := `SELECT id, username, created_at FROM participants WHERE id = $1`

	p := &model.Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Username, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgParticipantRepository.FindParticipantByID: %w", err)
	}
	return p, nil
}
