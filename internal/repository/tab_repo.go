package repository

import (
	"context"
	"errors"

	"cafepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TabRepository interface {
	// FindOpen returns the table's open tab for the given service day, or
	// (nil, nil) when the table has none.
	FindOpen(ctx context.Context, tableID uuid.UUID, serviceDay string) (*model.Tab, error)
	// FindOpenForUpdate is FindOpen under a row lock, for settlement writes.
	FindOpenForUpdate(ctx context.Context, tableID uuid.UUID, serviceDay string) (*model.Tab, error)
	// FindOrCreateOpen returns the table's open tab for the service day,
	// creating it if none exists. Callers must run inside a transaction; the
	// advisory lock serializes racing creators for the same table+day.
	FindOrCreateOpen(ctx context.Context, tab *model.Tab) (*model.Tab, error)
	FindByIDWithDetail(ctx context.Context, id uuid.UUID) (*model.Tab, error)
	// FindByIDForUpdate loads a tab by id under a row lock.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Tab, error)
	Update(ctx context.Context, tab *model.Tab) error
	CreateLine(ctx context.Context, line *model.LineEntry) error
	// FindLineForUpdate loads a posted line under a row lock, with its
	// product attached for routing.
	FindLineForUpdate(ctx context.Context, id uuid.UUID) (*model.LineEntry, error)
	UpdateLine(ctx context.Context, line *model.LineEntry) error
	CreatePayment(ctx context.Context, payment *model.PaymentEntry) error
	// CloseLines marks every non-cancelled line of the tab closed.
	CloseLines(ctx context.Context, tabID uuid.UUID) error
	// ListOpenByDay returns all open tabs for a service day (table overview).
	ListOpenByDay(ctx context.Context, serviceDay string) ([]model.Tab, error)
	// OpenLinesByDay returns the still-open, non-cancelled lines of the day's
	// open tabs with product and table loaded (station queue screens).
	OpenLinesByDay(ctx context.Context, serviceDay string) ([]model.LineEntry, error)
}

type tabRepository struct {
	db *gorm.DB
}

func NewTabRepository(db *gorm.DB) TabRepository {
	return &tabRepository{db: db}
}

func (r *tabRepository) FindOpen(ctx context.Context, tableID uuid.UUID, serviceDay string) (*model.Tab, error) {
	return r.findOpen(GetDB(ctx, r.db), tableID, serviceDay)
}

func (r *tabRepository) FindOpenForUpdate(ctx context.Context, tableID uuid.UUID, serviceDay string) (*model.Tab, error) {
	return r.findOpen(forUpdate(GetDB(ctx, r.db)), tableID, serviceDay)
}

func (r *tabRepository) findOpen(db *gorm.DB, tableID uuid.UUID, serviceDay string) (*model.Tab, error) {
	var tab model.Tab
	err := db.Where("table_id = ? AND service_day = ? AND closed = ?", tableID, serviceDay, false).
		First(&tab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tab, nil
}

func (r *tabRepository) FindOrCreateOpen(ctx context.Context, tab *model.Tab) (*model.Tab, error) {
	db := GetDB(ctx, r.db)
	advisoryLock(db, "tab:"+tab.TableID.String()+":"+tab.ServiceDay)

	existing, err := r.findOpen(forUpdate(db), tab.TableID, tab.ServiceDay)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := db.Create(tab).Error; err != nil {
		return nil, err
	}
	return tab, nil
}

func (r *tabRepository) FindByIDWithDetail(ctx context.Context, id uuid.UUID) (*model.Tab, error) {
	var tab model.Tab
	err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_entries.created_at ASC") }).
		Preload("Lines.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_entries.created_at ASC") }).
		Preload("Table").
		First(&tab, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tab, nil
}

func (r *tabRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Tab, error) {
	var tab model.Tab
	if err := forUpdate(GetDB(ctx, r.db)).First(&tab, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tab, nil
}

func (r *tabRepository) Update(ctx context.Context, tab *model.Tab) error {
	return GetDB(ctx, r.db).Save(tab).Error
}

func (r *tabRepository) CreateLine(ctx context.Context, line *model.LineEntry) error {
	return GetDB(ctx, r.db).Create(line).Error
}

func (r *tabRepository) FindLineForUpdate(ctx context.Context, id uuid.UUID) (*model.LineEntry, error) {
	var line model.LineEntry
	if err := forUpdate(GetDB(ctx, r.db)).First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", line.ProductID).Error; err == nil {
		line.Product = &product
	}
	return &line, nil
}

func (r *tabRepository) UpdateLine(ctx context.Context, line *model.LineEntry) error {
	return GetDB(ctx, r.db).Save(line).Error
}

func (r *tabRepository) CreatePayment(ctx context.Context, payment *model.PaymentEntry) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *tabRepository) CloseLines(ctx context.Context, tabID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.LineEntry{}).
		Where("tab_id = ? AND cancelled = ?", tabID, false).
		Update("closed", true).Error
}

func (r *tabRepository) ListOpenByDay(ctx context.Context, serviceDay string) ([]model.Tab, error) {
	var tabs []model.Tab
	err := GetDB(ctx, r.db).
		Where("service_day = ? AND closed = ?", serviceDay, false).
		Find(&tabs).Error
	if err != nil {
		return nil, err
	}
	return tabs, nil
}

func (r *tabRepository) OpenLinesByDay(ctx context.Context, serviceDay string) ([]model.LineEntry, error) {
	var lines []model.LineEntry
	err := GetDB(ctx, r.db).
		Joins("JOIN tabs ON tabs.id = line_entries.tab_id").
		Where("tabs.service_day = ? AND tabs.closed = ?", serviceDay, false).
		Where("line_entries.cancelled = ? AND line_entries.closed = ?", false, false).
		Preload("Product").
		Preload("Tab.Table").
		Order("line_entries.created_at DESC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
