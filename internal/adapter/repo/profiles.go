package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wordcraft/internal/domain"
	"wordcraft/internal/infra"
	"wordcraft/internal/sqlinline"
)

// ProfileRepositoryPG implements domain.ProfileRepository backed by PostgreSQL.
type ProfileRepositoryPG struct {
	db infra.SQLExecutor
}

// NewProfileRepository creates a new ProfileRepositoryPG.
func NewProfileRepository(db infra.SQLExecutor) *ProfileRepositoryPG {
	return &ProfileRepositoryPG{db: db}
}

// GetByID fetches a profile by its user id.
func (r *ProfileRepositoryPG) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, sqlinline.QSelectProfileByID, userID))
}

// Update applies patch and returns the stored profile.
func (r *ProfileRepositoryPG) Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	var plan *string
	if patch.Plan != nil {
		s := string(*patch.Plan)
		plan = &s
	}
	var usage []byte
	if len(patch.Usage) > 0 {
		b, err := json.Marshal(patch.Usage)
		if err != nil {
			return nil, fmt.Errorf("encode usage: %w", err)
		}
		usage = b
	}
	row := r.db.QueryRow(ctx, sqlinline.QUpdateProfile,
		userID,
		patch.Name,
		plan,
		patch.Credits,
		patch.MaxCredits,
		usage,
	)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p     domain.Profile
		plan  string
		usage []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &plan, &p.Credits, &p.MaxCredits, &usage); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Plan = domain.PlanTier(plan)
	p.Usage = map[domain.ToolKind]int{}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &p.Usage); err != nil {
			return nil, fmt.Errorf("decode usage: %w", err)
		}
	}
	return &p, nil
}

var _ domain.ProfileRepository = (*ProfileRepositoryPG)(nil)
