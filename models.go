package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account record behind every auth flow. The single `token`
// column carries both the pending email-confirmation token and a pending
// password-reset token; an empty value maps to NULL and means no operation
// is outstanding.
type User struct {
	bun.BaseModel `bun:"table:usuarios,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Nombre        string     `bun:"nombre,notnull" json:"nombre,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	Confirmado    bool       `bun:"confirmado,notnull,default:false" json:"confirmado"`
	Token         string     `bun:"token,nullzero" json:"token,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPendingToken reports whether a confirmation or password reset
// is outstanding for this account.
func (u *User) HasPendingToken() bool {
	return u != nil && u.Token != ""
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
