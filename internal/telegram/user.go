package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"

	"diamond_tma/internal/domain"
)

const userField = "user"

// UserDataError marks a failure in the user extraction stage. It unwraps
// to domain.ErrMissingUserFields or domain.ErrMalformedInput.
type UserDataError struct {
	Field string
	Err   error
}

func (e *UserDataError) Error() string {
	if e.Field == "" {
		return "invalid user data: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid user data (%s): %s", e.Field, e.Err.Error())
}

func (e *UserDataError) Unwrap() error { return e.Err }

// ExtractUser parses the user JSON embedded in raw init data. It does not
// check the signature; callers must have verified raw first.
func ExtractUser(raw string) (domain.Identity, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return domain.Identity{}, &UserDataError{Err: domain.ErrMalformedInput}
	}
	return extractUser(values)
}

func extractUser(values url.Values) (domain.Identity, error) {
	userJSON := lastValue(values, userField)
	if userJSON == "" {
		return domain.Identity{}, &UserDataError{Field: userField, Err: domain.ErrMissingUserFields}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(userJSON), &fields); err != nil || fields == nil {
		return domain.Identity{}, &UserDataError{Field: userField, Err: domain.ErrMalformedInput}
	}

	var id domain.Identity
	// int64 target rejects strings, fractions and exponents
	if err := json.Unmarshal(fields["id"], &id.TelegramID); err != nil || id.TelegramID <= 0 {
		return domain.Identity{}, &UserDataError{Field: "id", Err: domain.ErrMissingUserFields}
	}
	if err := json.Unmarshal(fields["first_name"], &id.FirstName); err != nil || id.FirstName == "" {
		return domain.Identity{}, &UserDataError{Field: "first_name", Err: domain.ErrMissingUserFields}
	}

	id.LastName = optionalString(fields, "last_name")
	id.Username = optionalString(fields, "username")
	id.LanguageCode = optionalString(fields, "language_code")
	id.PhotoURL = optionalString(fields, "photo_url")
	if raw, ok := fields["is_premium"]; ok {
		var premium bool
		if json.Unmarshal(raw, &premium) == nil {
			id.IsPremium = &premium
		}
	}
	return id, nil
}

func optionalString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
