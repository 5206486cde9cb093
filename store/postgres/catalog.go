package postgres

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

type clientRepo struct {
	db *bun.DB
}

func (r *clientRepo) Get(ctx context.Context, id string) (*domain.Client, error) {
	c := new(domain.Client)
	err := r.db.NewSelect().Model(c).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return c, nil
}

func (r *clientRepo) GetByContactNumber(ctx context.Context, number string) (*domain.Client, error) {
	c := new(domain.Client)
	err := r.db.NewSelect().Model(c).
		Where("contact_number = ?", number).
		Where("active = TRUE").
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return c, nil
}

type branchRepo struct {
	db *bun.DB
}

func (r *branchRepo) Get(ctx context.Context, id string) (*domain.Branch, error) {
	b := new(domain.Branch)
	err := r.db.NewSelect().Model(b).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return b, nil
}

func (r *branchRepo) ListByClient(ctx context.Context, clientID string) ([]domain.Branch, error) {
	var branches []domain.Branch
	err := r.db.NewSelect().Model(&branches).
		Where("client_id = ?", clientID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return branches, nil
}

type categoryRepo struct {
	db *bun.DB
}

func (r *categoryRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Category, error) {
	var categories []domain.Category
	err := r.db.NewSelect().Model(&categories).
		Where("branch_id = ?", branchID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

type serviceRepo struct {
	db *bun.DB
}

func (r *serviceRepo) Get(ctx context.Context, id string) (*domain.Service, error) {
	s := new(domain.Service)
	err := r.db.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return s, nil
}

func (r *serviceRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Service, error) {
	var services []domain.Service
	err := r.db.NewSelect().Model(&services).
		Where("branch_id = ?", branchID).
		Where("active = TRUE").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *serviceRepo) ListByCategory(ctx context.Context, categoryID string) ([]domain.Service, error) {
	var services []domain.Service
	err := r.db.NewSelect().Model(&services).
		Where("category_id = ?", categoryID).
		Where("active = TRUE").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *serviceRepo) FindByName(ctx context.Context, branchID, name string) (*domain.Service, error) {
	s := new(domain.Service)
	pattern := "%" + strings.TrimSpace(name) + "%"
	err := r.db.NewSelect().Model(s).
		Where("branch_id = ?", branchID).
		Where("active = TRUE").
		Where("name ILIKE ?", pattern).
		Order("name ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return s, nil
}

type calendarRepo struct {
	db *bun.DB
}

func (r *calendarRepo) Get(ctx context.Context, id string) (*domain.Calendar, error) {
	c := new(domain.Calendar)
	err := r.db.NewSelect().Model(c).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return c, nil
}

func (r *calendarRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Calendar, error) {
	var calendars []domain.Calendar
	err := r.db.NewSelect().Model(&calendars).
		Where("branch_id = ?", branchID).
		Where("active = TRUE").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

func (r *calendarRepo) ListForService(ctx context.Context, serviceID string) ([]domain.Calendar, error) {
	var calendars []domain.Calendar
	err := r.db.NewSelect().Model(&calendars).
		Join("JOIN calendar_services AS cs ON cs.calendar_id = calendar.id").
		Where("cs.service_id = ?", serviceID).
		Where("calendar.active = TRUE").
		Order("calendar.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

func (r *calendarRepo) FindByName(ctx context.Context, branchID, name string) (*domain.Calendar, error) {
	c := new(domain.Calendar)
	pattern := "%" + strings.TrimSpace(name) + "%"
	err := r.db.NewSelect().Model(c).
		Where("branch_id = ?", branchID).
		Where("active = TRUE").
		Where("name ILIKE ?", pattern).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return c, nil
}

var _ store.ClientRepository = (*clientRepo)(nil)
var _ store.ServiceRepository = (*serviceRepo)(nil)
var _ store.CalendarRepository = (*calendarRepo)(nil)
