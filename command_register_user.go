package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// MinPasswordLength applies to registration and password reset alike.
const MinPasswordLength = 8

type RegisterUserMessage struct {
	Nombre    string `json:"nombre"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User  *User
	Token string
}

// RegisterUserHandler creates an unconfirmed account with a fresh
// confirmation token and dispatches the confirmation email.
type RegisterUserHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the sink that receives the confirmation email.
func (h *RegisterUserHandler) WithNotifier(n Notifier) *RegisterUserHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if len(event.Password) < MinPasswordLength {
		return goerrors.New("password must be at least 8 characters", goerrors.CategoryValidation).
			WithTextCode("PASSWORD_TOO_SHORT")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The unique email column backs this check; a racing duplicate
		// insert still fails inside the same transaction.
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Nombre = event.Nombre
		user.Email = event.Email
		user.PasswordHash = hash
		user.Confirmado = false
		user.Token = NewToken()
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.dispatchConfirmation(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			User:  user,
			Token: user.Token,
		})
	}

	return nil
}

func (h *RegisterUserHandler) dispatchConfirmation(ctx context.Context, user *User) {
	err := normalizeNotifier(h.notifier).SendConfirmation(ctx, EmailMessage{
		Nombre: user.Nombre,
		Email:  user.Email,
		Token:  user.Token,
	})
	if err != nil {
		// fire-and-forget: the registration already committed
		h.logger.Warn("confirmation email dispatch failed", "error", err)
	}
}
