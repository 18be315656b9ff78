package domain

import "time"

// UserRef mirrors an account held by the external identity provider.
// No credentials live here; the directory is lookup and provisioning only.
type UserRef struct {
	ID        int64
	Username  string
	Email     string
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
