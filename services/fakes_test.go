package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"gorm.io/gorm"
)

// ---- in-memory stock store ----

type ledgerKey struct{ product, location uint }

// memStockStore serializes transactions behind one mutex, which gives the
// same isolation a row lock would for the tests here. A failed transaction
// restores the snapshot taken when it began.
type memStockStore struct {
	mu sync.Mutex

	ledgers      map[ledgerKey]*models.StockLedgerEntry
	movements    []models.StockMovement
	reservations map[uint]*models.StockReservation
	nextID       uint

	failMovement error
}

func newMemStockStore() *memStockStore {
	return &memStockStore{
		ledgers:      map[ledgerKey]*models.StockLedgerEntry{},
		reservations: map[uint]*models.StockReservation{},
	}
}

func (s *memStockStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStockStore) WithinTx(_ context.Context, fn func(tx repository.StockTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledgers := make(map[ledgerKey]*models.StockLedgerEntry, len(s.ledgers))
	for k, v := range s.ledgers {
		cp := *v
		ledgers[k] = &cp
	}
	reservations := make(map[uint]*models.StockReservation, len(s.reservations))
	for k, v := range s.reservations {
		cp := *v
		reservations[k] = &cp
	}
	movements := len(s.movements)
	nextID := s.nextID

	if err := fn(&memStockTx{s: s}); err != nil {
		s.ledgers = ledgers
		s.reservations = reservations
		s.movements = s.movements[:movements]
		s.nextID = nextID
		return err
	}
	return nil
}

func (s *memStockStore) FindLedger(_ context.Context, productID, locationID uint) (*models.StockLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ledgers[ledgerKey{productID, locationID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memStockStore) SumReserved(_ context.Context, productID uint) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, found := 0, false
	for k, e := range s.ledgers {
		if k.product == productID {
			found = true
			total += e.Reserved
		}
	}
	return total, found, nil
}

func (s *memStockStore) FindReservation(_ context.Context, id uint) (*models.StockReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStockStore) ListReservations(_ context.Context, f repository.ReservationFilter) ([]models.StockReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.StockReservation{}
	for _, r := range s.reservations {
		if f.ProductID != nil && r.ProductID != *f.ProductID {
			continue
		}
		if f.UserID != nil && (r.UserID == nil || *r.UserID != *f.UserID) {
			continue
		}
		if f.ActiveOnly && !r.IsActive() {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStockStore) ListMovements(_ context.Context, f repository.MovementFilter) ([]models.StockMovement, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stockIDs := map[uint]bool{}
	for k, e := range s.ledgers {
		if f.ProductID != nil && k.product != *f.ProductID {
			continue
		}
		if f.LocationID != nil && k.location != *f.LocationID {
			continue
		}
		stockIDs[e.ID] = true
	}
	var out []models.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if f.BeforeID != nil && m.ID >= *f.BeforeID {
			continue
		}
		if stockIDs[m.StockID] {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStockStore) movementsOf(t models.MovementType) []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StockMovement
	for _, m := range s.movements {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStockStore) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

func (s *memStockStore) seedLedger(productID, locationID uint, available, reserved int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[ledgerKey{productID, locationID}] = &models.StockLedgerEntry{
		ID:         s.id(),
		ProductID:  productID,
		LocationID: locationID,
		Available:  available,
		Reserved:   reserved,
	}
}

func (s *memStockStore) seedReservation(r models.StockReservation) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.reservations[r.ID] = &r
	return r.ID
}

type memStockTx struct{ s *memStockStore }

func (t *memStockTx) LockLedger(_ context.Context, productID, locationID uint) (*models.StockLedgerEntry, error) {
	e, ok := t.s.ledgers[ledgerKey{productID, locationID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (t *memStockTx) EnsureLedger(_ context.Context, productID, locationID uint) error {
	k := ledgerKey{productID, locationID}
	if _, ok := t.s.ledgers[k]; !ok {
		t.s.ledgers[k] = &models.StockLedgerEntry{ID: t.s.id(), ProductID: productID, LocationID: locationID}
	}
	return nil
}

func (t *memStockTx) SaveLedger(_ context.Context, entry *models.StockLedgerEntry) error {
	if entry.Available < 0 || entry.Reserved < 0 {
		return errors.New("check constraint violated")
	}
	cp := *entry
	t.s.ledgers[ledgerKey{entry.ProductID, entry.LocationID}] = &cp
	return nil
}

func (t *memStockTx) CreateMovement(_ context.Context, m *models.StockMovement) error {
	if t.s.failMovement != nil {
		return t.s.failMovement
	}
	m.ID = t.s.id()
	t.s.movements = append(t.s.movements, *m)
	return nil
}

func (t *memStockTx) LockReservation(_ context.Context, id uint) (*models.StockReservation, error) {
	r, ok := t.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memStockTx) CreateReservation(_ context.Context, r *models.StockReservation) error {
	r.ID = t.s.id()
	cp := *r
	t.s.reservations[r.ID] = &cp
	return nil
}

func (t *memStockTx) SaveReservationStatus(_ context.Context, r *models.StockReservation) error {
	stored, ok := t.s.reservations[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = r.Status
	return nil
}

// ---- catalog repositories ----

type memProductRepo struct {
	mu       sync.Mutex
	products map[uint]*models.Product
	nextID   uint
}

func newMemProductRepo(products ...models.Product) *memProductRepo {
	r := &memProductRepo{products: map[uint]*models.Product{}}
	for i := range products {
		p := products[i]
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
		r.products[p.ID] = &p
	}
	return r
}

func (r *memProductRepo) Create(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.SKU == p.SKU {
			return errDuplicate
		}
	}
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, id uint) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) FindBySKU(_ context.Context, sku string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memProductRepo) FindAll(_ context.Context, page, limit int, activeOnly bool) ([]models.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Product
	for _, p := range r.products {
		if activeOnly && !p.IsActive {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Product{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memProductRepo) Update(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

type memLocationRepo struct {
	locations map[uint]*models.Location
	nextID    uint
}

func newMemLocationRepo(locations ...models.Location) *memLocationRepo {
	r := &memLocationRepo{locations: map[uint]*models.Location{}}
	for i := range locations {
		l := locations[i]
		if l.ID > r.nextID {
			r.nextID = l.ID
		}
		r.locations[l.ID] = &l
	}
	return r
}

func (r *memLocationRepo) Create(_ context.Context, l *models.Location) error {
	r.nextID++
	l.ID = r.nextID
	cp := *l
	r.locations[l.ID] = &cp
	return nil
}

func (r *memLocationRepo) FindByID(_ context.Context, id uint) (*models.Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLocationRepo) FindByName(_ context.Context, name string) (*models.Location, error) {
	for _, l := range r.locations {
		if l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memLocationRepo) FindAll(_ context.Context) ([]models.Location, error) {
	out := []models.Location{}
	for _, l := range r.locations {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var errDuplicate = gorm.ErrDuplicatedKey

// ---- publisher ----

type recordingPublisher struct {
	mu       sync.Mutex
	stock    []models.StockEvent
	orders   []models.OrderEvent
	accounts []models.AccountEvent
}

func (p *recordingPublisher) PublishAccountEvent(_ context.Context, evt models.AccountEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = append(p.accounts, evt)
}

func (p *recordingPublisher) PublishStockEvent(_ context.Context, evt models.StockEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = append(p.stock, evt)
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, evt models.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, evt)
}

func (p *recordingPublisher) stockTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.stock))
	for _, e := range p.stock {
		out = append(out, e.Type)
	}
	return out
}

func uintPtr(v uint) *uint    { return &v }
func strPtr(v string) *string { return &v }
