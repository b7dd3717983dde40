package users

import (
	"context"
	"errors"
	"fmt"
	"log"

	"vipclub-bot/internal/models"
	"vipclub-bot/internal/store"
)

// Service is the user directory. Users are created on first interaction;
// the current-subscription pointer is maintained by the lifecycle manager,
// never here.
type Service struct {
	Store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{Store: st}
}

// Register creates the user if it does not exist yet and reports whether it
// was created. An existing user is returned untouched.
func (s *Service) Register(ctx context.Context, id, username, firstName string) (*models.User, bool, error) {
	if id == "" {
		return nil, false, fmt.Errorf("%w: empty user id", models.ErrValidation)
	}

	existing, err := s.Store.GetUser(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	user := &models.User{
		ID:        id,
		Username:  username,
		FirstName: firstName,
	}
	if err := s.Store.SaveUser(ctx, user); err != nil {
		return nil, false, err
	}

	log.Printf("Registered user %s (%s)", id, username)
	return user, true, nil
}

// Get looks up a user by id.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", models.ErrValidation)
	}
	return s.Store.GetUser(ctx, id)
}
