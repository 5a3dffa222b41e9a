package domain

import "time"

// Identity is the user a verified init data payload speaks for.
// Only the telegram package (after a successful signature check) and the
// explicitly enabled dev mock path construct it.
type Identity struct {
	TelegramID   int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    *bool  `json:"is_premium,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// UserProfile is the durable record upserted on every successful verification.
type UserProfile struct {
	TelegramID   int64     `db:"telegram_id" json:"telegram_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name,omitempty"`
	Username     string    `db:"username" json:"username,omitempty"`
	LanguageCode string    `db:"language_code" json:"language_code,omitempty"`
	IsPremium    bool      `db:"is_premium" json:"is_premium"`
	PhotoURL     string    `db:"photo_url" json:"photo_url,omitempty"`
	LastActive   time.Time `db:"last_active" json:"last_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileFromIdentity builds the profile row written for id at time now.
func ProfileFromIdentity(id Identity, now time.Time) *UserProfile {
	p := &UserProfile{
		TelegramID:   id.TelegramID,
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		Username:     id.Username,
		LanguageCode: id.LanguageCode,
		PhotoURL:     id.PhotoURL,
		LastActive:   now,
	}
	if id.IsPremium != nil {
		p.IsPremium = *id.IsPremium
	}
	return p
}
