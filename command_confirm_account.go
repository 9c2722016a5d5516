package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ConfirmAccountMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *ConfirmAccountResponse)
}

func (e ConfirmAccountMessage) Type() string { return "user.confirm_account" }

type ConfirmAccountResponse struct {
	User *User
}

// ConfirmAccountHandler consumes a confirmation token. Consumption is a
// single atomic update, so a second attempt with the same token finds no
// row and reports the generic not-found error.
type ConfirmAccountHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewConfirmAccountHandler(repo RepositoryManager) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *ConfirmAccountHandler) WithLogger(logger Logger) *ConfirmAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return goerrors.New("missing confirmation token", goerrors.CategoryBadInput)
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = h.repo.Users().ConfirmAccountTx(ctx, tx, event.Token); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrTokenNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account confirmation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ConfirmAccountResponse{User: user})
	}

	return nil
}
