package repository

import (
	"context"
	"errors"

	"github.com/yashrajoria/management-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// ReservationFilter narrows ListReservations. Nil fields are not applied.
type ReservationFilter struct {
	ProductID  *uint
	UserID     *uint
	ActiveOnly bool
}

// MovementFilter narrows ListMovements. Nil fields are not applied.
// BeforeID switches to keyset paging: only movements older than that id are
// returned, Page is ignored and no total is counted.
type MovementFilter struct {
	ProductID  *uint
	LocationID *uint
	BeforeID   *uint
	Page       int
	Limit      int
}

// StockStore gives access to the ledger, movement and reservation tables.
// Mutations only happen through the StockTx handed to WithinTx.
type StockStore interface {
	WithinTx(ctx context.Context, fn func(tx StockTx) error) error

	FindLedger(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error)
	SumReserved(ctx context.Context, productID uint) (total int, found bool, err error)
	FindReservation(ctx context.Context, id uint) (*models.StockReservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]models.StockReservation, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, int64, error)
}

// StockTx is a single database transaction over the stock tables.
// Lock* methods take an exclusive row lock held until commit or rollback.
type StockTx interface {
	LockLedger(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error)
	EnsureLedger(ctx context.Context, productID, locationID uint) error
	SaveLedger(ctx context.Context, entry *models.StockLedgerEntry) error
	CreateMovement(ctx context.Context, movement *models.StockMovement) error

	LockReservation(ctx context.Context, id uint) (*models.StockReservation, error)
	CreateReservation(ctx context.Context, reservation *models.StockReservation) error
	SaveReservationStatus(ctx context.Context, reservation *models.StockReservation) error
}

type GormStockStore struct {
	db *gorm.DB
}

func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db}
}

func (s *GormStockStore) WithinTx(ctx context.Context, fn func(tx StockTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStockTx{db: tx})
	})
}

func (s *GormStockStore) FindLedger(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error) {
	var entry models.StockLedgerEntry
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *GormStockStore) SumReserved(ctx context.Context, productID uint) (int, bool, error) {
	var row struct {
		Entries  int64
		Reserved int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.StockLedgerEntry{}).
		Select("COUNT(*) AS entries, COALESCE(SUM(reserved), 0) AS reserved").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	return int(row.Reserved), row.Entries > 0, nil
}

func (s *GormStockStore) FindReservation(ctx context.Context, id uint) (*models.StockReservation, error) {
	var reservation models.StockReservation
	if err := s.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &reservation, nil
}

func (s *GormStockStore) ListReservations(ctx context.Context, filter ReservationFilter) ([]models.StockReservation, error) {
	q := s.db.WithContext(ctx).Model(&models.StockReservation{})
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.ActiveOnly {
		q = q.Where("status = ?", models.ReservationActive)
	}

	var reservations []models.StockReservation
	if err := q.Order("id ASC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *GormStockStore) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Joins("JOIN inventory_stock ON inventory_stock.id = inventory_stock_movements.stock_id")
	if filter.ProductID != nil {
		q = q.Where("inventory_stock.product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		q = q.Where("inventory_stock.location_id = ?", *filter.LocationID)
	}

	var total int64
	offset := 0
	if filter.BeforeID != nil {
		q = q.Where("inventory_stock_movements.id < ?", *filter.BeforeID)
	} else {
		if err := q.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		offset = (filter.Page - 1) * filter.Limit
	}

	var movements []models.StockMovement
	err := q.Select("inventory_stock_movements.*").
		Order("inventory_stock_movements.id DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&movements).Error
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

type gormStockTx struct {
	db *gorm.DB
}

func (t *gormStockTx) LockLedger(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error) {
	var entry models.StockLedgerEntry
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// EnsureLedger inserts a zeroed ledger row for the pair unless one already exists.
func (t *gormStockTx) EnsureLedger(ctx context.Context, productID, locationID uint) error {
	entry := models.StockLedgerEntry{ProductID: productID, LocationID: locationID}
	return t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(&entry).Error
}

func (t *gormStockTx) SaveLedger(ctx context.Context, entry *models.StockLedgerEntry) error {
	return t.db.WithContext(ctx).
		Model(entry).
		Updates(map[string]interface{}{
			"available": entry.Available,
			"reserved":  entry.Reserved,
		}).Error
}

func (t *gormStockTx) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return t.db.WithContext(ctx).Create(movement).Error
}

func (t *gormStockTx) LockReservation(ctx context.Context, id uint) (*models.StockReservation, error) {
	var reservation models.StockReservation
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reservation, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &reservation, nil
}

func (t *gormStockTx) CreateReservation(ctx context.Context, reservation *models.StockReservation) error {
	return t.db.WithContext(ctx).Create(reservation).Error
}

func (t *gormStockTx) SaveReservationStatus(ctx context.Context, reservation *models.StockReservation) error {
	return t.db.WithContext(ctx).
		Model(reservation).
		Update("status", reservation.Status).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
