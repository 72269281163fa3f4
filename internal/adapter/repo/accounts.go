package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wordcraft/internal/domain"
	"wordcraft/internal/infra"
	"wordcraft/internal/sqlinline"
)

const pgUniqueViolation = "23505"

// AccountRepositoryPG implements domain.AccountRepository backed by PostgreSQL.
type AccountRepositoryPG struct {
	db infra.TxExecutor
}

// NewAccountRepository creates a new AccountRepositoryPG.
func NewAccountRepository(db infra.TxExecutor) *AccountRepositoryPG {
	return &AccountRepositoryPG{db: db}
}

// Create inserts the account and its profile in one transaction. A taken
// email maps to domain.ErrEmailTaken.
func (r *AccountRepositoryPG) Create(ctx context.Context, account *domain.Account, profile domain.Profile) (*domain.Account, error) {
	usage, err := json.Marshal(profile.Clone().Usage)
	if err != nil {
		return nil, fmt.Errorf("encode usage: %w", err)
	}
	out := *account
	err = r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		row := tx.QueryRow(ctx, sqlinline.QInsertAccount, account.ID, account.Email, account.PasswordHash)
		if err := row.Scan(&out.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, sqlinline.QInsertProfile,
			profile.ID,
			profile.Name,
			profile.Email,
			string(profile.Plan),
			profile.Credits,
			profile.MaxCredits,
			usage,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return &out, nil
}

// GetByEmail fetches an account by its (case-insensitive) email.
func (r *AccountRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	row := r.db.QueryRow(ctx, sqlinline.QSelectAccountByEmail, email)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Delete removes the account. Profile, sessions and documents cascade.
func (r *AccountRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QDeleteAccount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepositoryPG)(nil)
