package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

const LeaderboardSize = 20

// UserService struct represents the user service layer
type UserService struct {
	userStore store.Users
}

// NewUserService creates a new UserService instance
func NewUserService(userStore store.Users) *UserService {
	return &UserService{
		userStore: userStore,
	}
}

// GetOrCreateUser checks if a user exists and creates them if not
func (s *UserService) GetOrCreateUser(ctx context.Context, userInfo models.User) (*models.User, error) {
	if userInfo.UserId <= 0 {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}

	existingUser, err := s.userStore.GetByID(ctx, userInfo.UserId)
	if err == nil {
		return existingUser, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, wrapInternal(err)
	}

	log.Infof("user %d not found, creating", userInfo.UserId)
	userInfo.Status = models.UserActive
	if _, err := s.userStore.CreateUser(ctx, userInfo); err != nil {
		return nil, wrapInternal(fmt.Errorf("failed to create user: %w", err))
	}
	return s.userStore.GetByID(ctx, userInfo.UserId)
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.userStore.GetByID(ctx, userID)
	return u, wrapInternal(err)
}

// TopPlayers ranks users by wins, then games played.
func (s *UserService) TopPlayers(ctx context.Context) ([]*models.LeaderboardEntry, error) {
	entries, err := s.userStore.TopPlayers(ctx, LeaderboardSize)
	return entries, wrapInternal(err)
}

func (s *UserService) TopEarners(ctx context.Context) ([]*models.LeaderboardEntry, error) {
	entries, err := s.userStore.TopEarners(ctx, LeaderboardSize)
	return entries, wrapInternal(err)
}
