package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, account_id, email, name, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgxRow) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.AccountID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO users (account_id, email, name, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING `+userColumns,
		params.AccountID, params.Email, params.Name, params.PasswordHash, params.Role,
	)
	return scanUser(row)
}

func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *UserStore) FindMailboxUser(ctx context.Context, accountID int64, localPart string) (*models.User, error) {
	// Mailbox addresses are <local part>@<account domain>, so the user's
	// email must start with the local part followed by "@".
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE account_id = $1 AND split_part(email, '@', 1) = $2
		 LIMIT 1`,
		accountID, localPart,
	)
	return scanUser(row)
}

func (s *UserStore) ListUsersByAccount(ctx context.Context, accountID int64) ([]models.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE account_id = $1 AND role != 'sysadmin'
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) SetUserActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
