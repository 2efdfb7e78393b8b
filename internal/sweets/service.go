package sweets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/internal/audit"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
)

const (
	notFoundMessage  = "Sweet not found"
	nameTakenMessage = "Sweet with this name already exists"
)

// Service exposes catalog reads to everyone and writes to admins.
type Service interface {
	List(ctx context.Context, page, limit int) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*SweetDTO, error)
	Search(ctx context.Context, filters SearchFilters) ([]*SweetDTO, error)
	Create(ctx context.Context, actorID uuid.UUID, input CreateSweetInput) (*SweetDTO, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateSweetInput) (*SweetDTO, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type sweetRepository interface {
	Create(ctx context.Context, sweet *models.Sweet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sweet, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Sweet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) ([]models.Sweet, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, filters SearchFilters) ([]models.Sweet, error)
}

type service struct {
	repo  sweetRepository
	audit audit.Recorder
	logg  *logger.Logger
}

// NewService builds the catalog service. A nil recorder disables auditing.
func NewService(repo sweetRepository, recorder audit.Recorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sweet repository required")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, audit: recorder, logg: logg}, nil
}

func (s *service) List(ctx context.Context, page, limit int) (*ListResult, error) {
	params := pagination.Normalize(page, limit)

	var (
		rows  []models.Sweet
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.List(gctx, params)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sweets")
	}

	return &ListResult{
		Sweets:     FromModels(rows),
		Pagination: pagination.NewMeta(params, total),
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SweetDTO, error) {
	sweet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "load sweet")
	}
	return FromModel(sweet), nil
}

func (s *service) Search(ctx context.Context, filters SearchFilters) ([]*SweetDTO, error) {
	rows, err := s.repo.Search(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search sweets")
	}
	return FromModels(rows), nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateSweetInput) (*SweetDTO, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" || category == "" || input.Price == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Price must be zero or greater")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Stock must be zero or greater")
	}

	sweet := &models.Sweet{
		Name:        name,
		Description: input.Description,
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		Category:    category,
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.Create(ctx, sweet); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, nameTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sweet")
	}

	s.record(ctx, audit.NewEntry(audit.ActionSweetCreated, sweet.ID, actorID, map[string]any{
		"name":  sweet.Name,
		"price": sweet.Price.String(),
		"stock": sweet.Stock,
	}))
	return FromModel(sweet), nil
}

func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateSweetInput) (*SweetDTO, error) {
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Price must be zero or greater")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Stock must be zero or greater")
	}
	if input.Price != nil {
		rounded := input.Price.Round(2)
		input.Price = &rounded
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, mapLookupErr(err, "load sweet")
	}

	updates := input.columns()
	sweet, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, nameTakenMessage)
		}
		return nil, mapLookupErr(err, "update sweet")
	}

	changes := make(map[string]any, len(updates))
	for k, v := range updates {
		changes[k] = fmt.Sprint(v)
	}
	s.record(ctx, audit.NewEntry(audit.ActionSweetUpdated, sweet.ID, actorID, changes))
	return FromModel(sweet), nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupErr(err, "delete sweet")
	}
	s.record(ctx, audit.NewEntry(audit.ActionSweetDeleted, id, actorID, nil))
	return nil
}

func (s *service) record(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "audit_action", entry.Action), "audit write failed", err)
	}
}

func mapLookupErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
