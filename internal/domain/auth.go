package domain

import "time"

// SubjectType differentiates regular users vs staff tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// SubjectFor returns the token subject type matching the user's staff flag.
func SubjectFor(u *User) SubjectType {
	if u != nil && u.IsStaff {
		return SubjectTypeStaff
	}
	return SubjectTypeUser
}

// Token represents issued access token metadata.
type Token struct {
	AccessToken string
	SubjectID   int64
	Subject     SubjectType
	ExpiresAt   time.Time
}
