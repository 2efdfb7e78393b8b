package sweets

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/pagination"
)

// SweetDTO is the public representation of a catalog entry.
type SweetDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromModel maps a persisted sweet to its DTO.
func FromModel(s *models.Sweet) *SweetDTO {
	if s == nil {
		return nil
	}
	return &SweetDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price.InexactFloat64(),
		Stock:       s.Stock,
		Category:    s.Category,
		ImageURL:    s.ImageURL,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// FromModels maps a slice, never returning nil.
func FromModels(list []models.Sweet) []*SweetDTO {
	out := make([]*SweetDTO, 0, len(list))
	for i := range list {
		out = append(out, FromModel(&list[i]))
	}
	return out
}

// ListResult is one page of the catalog.
type ListResult struct {
	Sweets     []*SweetDTO     `json:"sweets"`
	Pagination pagination.Meta `json:"pagination"`
}

// CreateSweetInput carries the fields for a new catalog entry.
type CreateSweetInput struct {
	Name        string
	Description *string
	Price       *decimal.Decimal
	Stock       int
	Category    string
	ImageURL    *string
}

// UpdateSweetInput holds a partial update. Nil fields are left untouched.
type UpdateSweetInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	ImageURL    *string
}

func (in UpdateSweetInput) columns() map[string]any {
	updates := map[string]any{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil && *in.Description != "" {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Stock != nil {
		updates["stock"] = *in.Stock
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		updates["category"] = strings.TrimSpace(*in.Category)
	}
	if in.ImageURL != nil && *in.ImageURL != "" {
		updates["image_url"] = *in.ImageURL
	}
	return updates
}

// SearchFilters narrows the catalog. Query is a case-insensitive substring of
// the name; Category must match exactly.
type SearchFilters struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}
