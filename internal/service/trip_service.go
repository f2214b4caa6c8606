package service

import (
	"context"
	"errors"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/repository"
)

// ErrUserIDRequired is returned when no user id is given
var ErrUserIDRequired = errors.New("userId is required")

type TripService struct {
	repo repository.TripRepository
}

func NewTripService(repo repository.TripRepository) *TripService {
	return &TripService{repo: repo}
}

// ListTrips returns the trips of userID
func (s *TripService) ListTrips(ctx context.Context, userID string) ([]models.Trip, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	trips, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	return trips, nil
}
