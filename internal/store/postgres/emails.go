package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

type EmailStore struct {
	db *pgxpool.Pool
}

func NewEmailStore(db *pgxpool.Pool) *EmailStore {
	return &EmailStore{db: db}
}

const emailColumns = `id, account_id, user_id, direction, provider_email_id, provider_message_id,
	from_address, to_addresses, cc, bcc, subject, html, text, attachments,
	delivery_status, bounce_reason, bounce_type, delivered_at, bounced_at, failed_at,
	email_created_at, created_at, updated_at`

func scanEmail(row pgxRow) (*models.Email, error) {
	var (
		e           models.Email
		attachments []byte
	)
	err := row.Scan(
		&e.ID, &e.AccountID, &e.UserID, &e.Direction, &e.ProviderEmailID, &e.ProviderMessageID,
		&e.From, &e.To, &e.CC, &e.BCC, &e.Subject, &e.HTML, &e.Text, &attachments,
		&e.DeliveryStatus, &e.BounceReason, &e.BounceType, &e.DeliveredAt, &e.BouncedAt, &e.FailedAt,
		&e.EmailCreatedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &e.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments for email %d: %w", e.ID, err)
		}
	}
	return &e, nil
}

func (s *EmailStore) CreateEmail(ctx context.Context, params store.CreateEmailParams) (*models.Email, error) {
	var attachments []byte
	if params.Attachments != nil {
		var err error
		attachments, err = json.Marshal(params.Attachments)
		if err != nil {
			return nil, fmt.Errorf("encode attachments: %w", err)
		}
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO emails (account_id, user_id, direction, provider_email_id, provider_message_id,
			from_address, to_addresses, cc, bcc, subject, html, text, attachments,
			delivery_status, email_created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+emailColumns,
		params.AccountID, params.UserID, params.Direction, params.ProviderEmailID, params.ProviderMessageID,
		params.From, params.To, params.CC, params.BCC, params.Subject, params.HTML, params.Text, attachments,
		params.DeliveryStatus, params.EmailCreatedAt,
	)
	return scanEmail(row)
}

func (s *EmailStore) GetEmailByProviderID(ctx context.Context, providerEmailID string) (*models.Email, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE provider_email_id = $1`, providerEmailID)
	return scanEmail(row)
}

func (s *EmailStore) UpdateDeliveryStatus(ctx context.Context, email *models.Email) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE emails
		 SET delivery_status = $2, bounce_reason = $3, bounce_type = $4,
		     delivered_at = $5, bounced_at = $6, failed_at = $7, updated_at = NOW()
		 WHERE id = $1`,
		email.ID, email.DeliveryStatus, email.BounceReason, email.BounceType,
		email.DeliveredAt, email.BouncedAt, email.FailedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *EmailStore) ListRecentEmails(ctx context.Context, scope store.EmailScope, limit int) ([]models.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails`
	args := make([]any, 0, 3)
	conds := make([]string, 0, 2)

	if scope.AccountID != nil {
		args = append(args, *scope.AccountID)
		conds = append(conds, `account_id = $`+strconv.Itoa(len(args)))
	}
	if scope.UserID != nil {
		args = append(args, *scope.UserID)
		conds = append(conds, `user_id = $`+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []models.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *e)
	}
	return emails, rows.Err()
}
