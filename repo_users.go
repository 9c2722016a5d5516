package auth

import (
	"context"
	"net/mail"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConfirmAccountSQL consumes a confirmation token: the same statement that
// matches the token clears it and flips the confirmed flag, so a token can
// be spent exactly once even under concurrent requests.
var ConfirmAccountSQL = `UPDATE "usuarios" AS "usr"
SET
	"token" = NULL,
	"confirmado" = TRUE,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."token" = ?
RETURNING *;`

// ResetUserPasswordSQL consumes a reset token and swaps the password hash
// in a single statement.
var ResetUserPasswordSQL = `UPDATE "usuarios" AS "usr"
SET
	"password_hash" = ?,
	"token" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."token" = ?
RETURNING *;`

// Users is the persistence boundary for account records
type Users interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByToken(ctx context.Context, token string) (*User, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error)

	ConfirmAccount(ctx context.Context, token string) (*User, error)
	ConfirmAccountTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	ResetPassword(ctx context.Context, token, passwordHash string) (*User, error)
	ResetPasswordTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

// GetByIdentifierTx resolves a user by id or email, in that order. The login
// form submits an email; session subjects carry the user id.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	trimmed := strings.TrimSpace(identifier)

	if isUUID(trimmed) {
		record, err := a.getByColumnTx(ctx, tx, "id", trimmed)
		if err == nil {
			return record, nil
		}
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	if isEmail(trimmed) {
		return a.GetByEmailTx(ctx, tx, trimmed)
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "email", email)
}

func (a *users) GetByToken(ctx context.Context, token string) (*User, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *users) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}
	return a.getByColumnTx(ctx, tx, "token", token)
}

func (a *users) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	return a.UpdateTx(ctx, a.db, record, criteria...)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.UpdateCriteria) (*User, error) {
	if len(criteria) == 0 && record != nil {
		criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	}
	return a.Repository.UpdateTx(ctx, tx, record, criteria...)
}

func (a *users) ConfirmAccount(ctx context.Context, token string) (*User, error) {
	return a.ConfirmAccountTx(ctx, a.db, token)
}

func (a *users) ConfirmAccountTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.consumeTokenTx(ctx, tx, ConfirmAccountSQL, token)
}

func (a *users) ResetPassword(ctx context.Context, token, passwordHash string) (*User, error) {
	return a.ResetPasswordTx(ctx, a.db, token, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*User, error) {
	return a.consumeTokenTx(ctx, tx, ResetUserPasswordSQL, passwordHash, token)
}

func (a *users) consumeTokenTx(ctx context.Context, tx bun.IDB, query string, args ...any) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, query, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
