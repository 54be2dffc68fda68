package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/turntable-server/turntable/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// authenticate resolves the requesting player for the newest endpoint
// generation: by name and password when supplied, by user id otherwise.
// Either way the player must currently be online; an offline session is a
// precondition failure, never a reason to substitute default data.
func (h *Handler) authenticate(ctx context.Context, q url.Values) (*domain.User, error) {
	username := q.Get("us")
	if username == "" {
		return h.authenticateByID(ctx, q)
	}

	user, err := h.users.UserByName(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user by name: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(q.Get("ha"))) != nil {
		return nil, domain.ErrUnauthorized
	}

	return user, h.requireOnline(ctx, user.ID)
}

// authenticateByID resolves the player from the user id parameter alone,
// which is all the older generations ever send.
func (h *Handler) authenticateByID(ctx context.Context, q url.Values) (*domain.User, error) {
	raw := q.Get("u")
	if raw == "" {
		return nil, domain.ErrUnauthorized
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}

	if err := h.requireOnline(ctx, id); err != nil {
		return nil, err
	}

	user, err := h.users.UserByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user by id: %w", err)
	}
	return user, nil
}

func (h *Handler) requireOnline(ctx context.Context, userID int) error {
	online, err := h.presence.Online(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking presence: %w", err)
	}
	if !online {
		return domain.ErrUnauthorized
	}
	return nil
}
