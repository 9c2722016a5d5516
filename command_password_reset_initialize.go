package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	User  *User
	Token string
}

// InitializePasswordResetHandler issues a fresh reset token for the account
// behind the email and dispatches the reset email. A token from an earlier
// request, confirmation or reset alike, is overwritten.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the sink that receives the reset email.
func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		user.Token = NewToken()
		if user, err = h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password reset token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	h.dispatchReset(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			User:  user,
			Token: user.Token,
		})
	}

	return nil
}

func (h *InitializePasswordResetHandler) dispatchReset(ctx context.Context, user *User) {
	err := normalizeNotifier(h.notifier).SendPasswordReset(ctx, EmailMessage{
		Nombre: user.Nombre,
		Email:  user.Email,
		Token:  user.Token,
	})
	if err != nil {
		// fire-and-forget: the token is already persisted
		h.logger.Warn("password reset email dispatch failed", "error", err)
	}
}
