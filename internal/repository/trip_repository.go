package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
)

// TripRepository lists the trips visible to a traveller
type TripRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Trip, error)
}

// FixtureTrips returns the two reference trips served to every traveller
func FixtureTrips() []models.Trip {
	return []models.Trip{
		{
			ID:               "1",
			TrainNumber:      "TGV 6241",
			DepartureStation: "Paris Gare de Lyon",
			ArrivalStation:   "Lyon Part-Dieu",
			DepartureTime:    "08:47",
			ArrivalTime:      "10:47",
			Duration:         "2h00",
			Platform:         "K",
			Status:           models.TripOnTime,
		},
		{
			ID:               "2",
			TrainNumber:      "TGV 6089",
			DepartureStation: "Lyon Part-Dieu",
			ArrivalStation:   "Marseille Saint-Charles",
			DepartureTime:    "14:15",
			ArrivalTime:      "15:55",
			Duration:         "1h40",
			Status:           models.TripOnTime,
		},
	}
}

// StaticTripRepository serves a fixed list regardless of the user
type StaticTripRepository struct {
	trips []models.Trip
}

// NewStaticTripRepository creates a repository over trips, or the fixtures when nil
func NewStaticTripRepository(trips []models.Trip) *StaticTripRepository {
	if trips == nil {
		trips = FixtureTrips()
	}
	return &StaticTripRepository{trips: trips}
}

// ListByUser implements TripRepository
func (r *StaticTripRepository) ListByUser(_ context.Context, _ string) ([]models.Trip, error) {
	out := make([]models.Trip, len(r.trips))
	copy(out, r.trips)
	return out, nil
}

// GormTripRepository reads trips from the database. Rows with an empty
// user_id are shared with every traveller.
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository creates a new GormTripRepository
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

// Migrate creates the trips table and seeds the shared fixtures
func (r *GormTripRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.Trip{}); err != nil {
		return fmt.Errorf("migrate trips: %w", err)
	}

	seed := FixtureTrips()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error
	if err != nil {
		return fmt.Errorf("seed trips: %w", err)
	}
	return nil
}

// ListByUser implements TripRepository
func (r *GormTripRepository) ListByUser(ctx context.Context, userID string) ([]models.Trip, error) {
	var trips []models.Trip
	result := r.db.WithContext(ctx).
		Where("user_id = ? OR user_id = ''", userID).
		Order("id ASC").
		Find(&trips)
	if result.Error != nil {
		return nil, fmt.Errorf("list trips: %w", result.Error)
	}
	return trips, nil
}

// Ping checks the database connection
func (r *GormTripRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
