package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type VerifyResetTokenMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *VerifyResetTokenResponse)
}

func (p VerifyResetTokenMessage) Type() string { return "user.password_reset_verify" }

type VerifyResetTokenResponse struct {
	Found bool
	User  *User
}

// VerifyResetTokenHandler checks that a reset token is still pending before
// the new-password form is shown. Pure lookup, the token stays valid.
type VerifyResetTokenHandler struct {
	repo RepositoryManager
}

func NewVerifyResetTokenHandler(repo RepositoryManager) *VerifyResetTokenHandler {
	return &VerifyResetTokenHandler{repo: repo}
}

func (h *VerifyResetTokenHandler) Execute(ctx context.Context, event VerifyResetTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during reset token verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyResetTokenHandler) execute(ctx context.Context, event VerifyResetTokenMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return goerrors.New("missing reset token", goerrors.CategoryBadInput)
	}

	user, err := h.repo.Users().GetByToken(ctx, event.Token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			if event.OnResponse != nil {
				event.OnResponse(&VerifyResetTokenResponse{Found: false})
			}
			return ErrTokenNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify reset token")
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyResetTokenResponse{
			Found: true,
			User:  user,
		})
	}

	return nil
}
