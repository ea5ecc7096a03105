package repository

import (
	"context"

	"github.com/yashrajoria/management-backend/models"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	FindByID(ctx context.Context, id uint) (*models.Location, error)
	FindByName(ctx context.Context, name string) (*models.Location, error)
	FindAll(ctx context.Context) ([]models.Location, error)
}

type GormLocationRepository struct {
	db *gorm.DB
}

func NewGormLocationRepository(db *gorm.DB) LocationRepository {
	return &GormLocationRepository{db: db}
}

func (r *GormLocationRepository) Create(ctx context.Context, location *models.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *GormLocationRepository) FindByID(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &location, nil
}

func (r *GormLocationRepository) FindByName(ctx context.Context, name string) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&location).Error; err != nil {
		return nil, notFound(err)
	}
	return &location, nil
}

func (r *GormLocationRepository) FindAll(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}
