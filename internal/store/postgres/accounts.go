package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

type AccountStore struct {
	db *pgxpool.Pool
}

func NewAccountStore(db *pgxpool.Pool) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, name, domain, provider_api_key, default_from_address, default_from_name,
	default_reply_to_address, default_reply_to_name, is_active, created_at, updated_at`

func scanAccount(row pgxRow) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Name, &a.Domain, &a.ProviderAPIKey, &a.DefaultFromAddress, &a.DefaultFromName,
		&a.DefaultReplyToAddress, &a.DefaultReplyToName, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// pgxRow is the subset of pgx row types used by the scan helpers.
type pgxRow interface {
	Scan(dest ...any) error
}

func (s *AccountStore) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO accounts (name, domain, provider_api_key, default_from_address, default_from_name,
			default_reply_to_address, default_reply_to_name, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING `+accountColumns,
		params.Name, params.Domain, params.ProviderAPIKey, params.DefaultFromAddress, params.DefaultFromName,
		params.DefaultReplyToAddress, params.DefaultReplyToName,
	)
	return scanAccount(row)
}

func (s *AccountStore) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *AccountStore) GetAccountByDomain(ctx context.Context, domain string) (*models.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE domain = $1`, domain)
	return scanAccount(row)
}

func (s *AccountStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *AccountStore) SetAccountActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
