package friend

import (
	"context"
	"fmt"

	"go-dm/internal/apperr"
)

// Store is what the service needs from persistence. The postgres Repository
// implements it; tests use an in-memory fake.
type Store interface {
	AreFriends(ctx context.Context, a, b int) (bool, error)
	HasPending(ctx context.Context, from, to int) (bool, error)
	// CreatePending fails with apperr.ErrDuplicateRequest if the row already
	// exists and apperr.ErrInvalidArgument if either user is absent.
	CreatePending(ctx context.Context, from, to int) error
	// Accept atomically removes the pending pair (both directions) and
	// creates the mutual friendship. apperr.ErrNotFound if no such request.
	Accept(ctx context.Context, user, from int) error
	// Reject removes the pending request only. apperr.ErrNotFound if none.
	Reject(ctx context.Context, user, from int) error
	Incoming(ctx context.Context, user int) ([]Request, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// SendRequest drives the None -> Pending(from->to) transition.
func (s *Service) SendRequest(ctx context.Context, from, to int) error {
	if from == to {
		return fmt.Errorf("%w: cannot send a request to yourself", apperr.ErrInvalidArgument)
	}

	friends, err := s.store.AreFriends(ctx, from, to)
	if err != nil {
		return err
	}
	if friends {
		return apperr.ErrAlreadyFriends
	}

	pending, err := s.store.HasPending(ctx, from, to)
	if err != nil {
		return err
	}
	if pending {
		return apperr.ErrDuplicateRequest
	}

	// A lost race against a concurrent identical request still surfaces as
	// ErrDuplicateRequest from the store's uniqueness constraint.
	return s.store.CreatePending(ctx, from, to)
}

func (s *Service) AcceptRequest(ctx context.Context, user, from int) error {
	return s.store.Accept(ctx, user, from)
}

func (s *Service) RejectRequest(ctx context.Context, user, from int) error {
	return s.store.Reject(ctx, user, from)
}

func (s *Service) ListIncoming(ctx context.Context, user int) ([]Request, error) {
	return s.store.Incoming(ctx, user)
}
