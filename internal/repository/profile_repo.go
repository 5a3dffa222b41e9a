package repository

import (
	"context"
	"errors"

	"diamond_tma/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert inserts the profile or refreshes its identity attributes and
// last_active. created_at is kept from the first insert.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.UserProfile) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO user_profiles
		     (telegram_id, first_name, last_name, username, language_code, is_premium, photo_url, last_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (telegram_id) DO UPDATE SET
		     first_name    = EXCLUDED.first_name,
		     last_name     = EXCLUDED.last_name,
		     username      = EXCLUDED.username,
		     language_code = EXCLUDED.language_code,
		     is_premium    = EXCLUDED.is_premium,
		     photo_url     = EXCLUDED.photo_url,
		     last_active   = EXCLUDED.last_active,
		     updated_at    = NOW()
		 RETURNING created_at, updated_at`,
		p.TelegramID,
		p.FirstName,
		p.LastName,
		p.Username,
		p.LanguageCode,
		p.IsPremium,
		p.PhotoURL,
		p.LastActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProfileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.UserProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT telegram_id, first_name, last_name, username, language_code, is_premium, photo_url,
		        last_active, created_at, updated_at
		 FROM user_profiles
		 WHERE telegram_id = $1`,
		telegramID,
	)

	var p domain.UserProfile
	if err := row.Scan(
		&p.TelegramID,
		&p.FirstName,
		&p.LastName,
		&p.Username,
		&p.LanguageCode,
		&p.IsPremium,
		&p.PhotoURL,
		&p.LastActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}
