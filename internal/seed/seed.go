// Package seed loads the admin account and the starter catalog. Existing rows
// are left untouched so the seeder can run on every deploy.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/internal/users"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

const sampleImage = "https://images.unsplash.com/photo-1578985545062-69928b1d9587?w=500&h=500&fit=crop"

type userStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type sweetStore interface {
	Create(ctx context.Context, sweet *models.Sweet) error
	FindByName(ctx context.Context, name string) (*models.Sweet, error)
}

type hasher interface {
	Hash(password string) (string, error)
}

// Sweet is one starter catalog entry.
type Sweet struct {
	Name        string
	Description string
	Price       string
	Stock       int
	Category    string
}

// Catalog is the starter inventory.
var Catalog = []Sweet{
	{"Chocolate Fudge", "Rich and creamy chocolate fudge made with premium cocoa", "5.99", 50, "Chocolate"},
	{"Strawberry Cake", "Fresh strawberry sponge cake with whipped cream", "7.99", 30, "Cake"},
	{"Caramel Candy", "Sweet and sticky caramel candy with butter notes", "3.99", 100, "Candy"},
	{"Vanilla Pastry", "Delicate vanilla pastry with smooth cream filling", "4.99", 75, "Pastry"},
	{"Mint Chocolate", "Refreshing mint chocolate bar with dark chocolate coating", "2.99", 60, "Chocolate"},
	{"Lemon Drop", "Sour and sweet lemon flavored candy drops", "2.49", 120, "Candy"},
	{"Cheesecake Slice", "New York style cheesecake with graham cracker crust", "8.99", 25, "Cake"},
	{"Hazelnut Spread", "Creamy hazelnut spread with cocoa goodness", "6.99", 40, "Spread"},
}

// Result counts what a run inserted.
type Result struct {
	AdminCreated  bool
	SweetsCreated int
}

type Seeder struct {
	users  userStore
	sweets sweetStore
	hasher hasher
	cfg    config.SeedConfig
	logg   *logger.Logger
}

func NewSeeder(userRepo userStore, sweetRepo sweetStore, h hasher, cfg config.SeedConfig, logg *logger.Logger) (*Seeder, error) {
	if userRepo == nil || sweetRepo == nil {
		return nil, errors.New("user and sweet repositories are required")
	}
	if h == nil {
		return nil, errors.New("password hasher is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Seeder{users: userRepo, sweets: sweetRepo, hasher: h, cfg: cfg, logg: logg}, nil
}

// Run seeds the admin then every catalog entry. A failing sweet does not
// stop the others; all failures are returned together.
func (s *Seeder) Run(ctx context.Context, catalog []Sweet) (Result, error) {
	var res Result

	created, err := s.ensureAdmin(ctx)
	if err != nil {
		return res, err
	}
	res.AdminCreated = created

	var errs error
	for _, item := range catalog {
		ok, err := s.ensureSweet(ctx, item)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed %q: %w", item.Name, err))
			continue
		}
		if ok {
			res.SweetsCreated++
		}
	}
	return res, errs
}

func (s *Seeder) ensureAdmin(ctx context.Context) (bool, error) {
	ctx = s.logg.WithField(ctx, "email", s.cfg.AdminEmail)
	if _, err := s.users.FindByEmail(ctx, s.cfg.AdminEmail); err == nil {
		s.logg.Info(ctx, "admin already present")
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := s.hasher.Hash(s.cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        s.cfg.AdminEmail,
		PasswordHash: hash,
		Name:         s.cfg.AdminName,
		Role:         enums.RoleAdmin,
	}); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.logg.Info(ctx, "admin created")
	return true, nil
}

func (s *Seeder) ensureSweet(ctx context.Context, item Sweet) (bool, error) {
	if _, err := s.sweets.FindByName(ctx, item.Name); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	price, err := decimal.NewFromString(item.Price)
	if err != nil {
		return false, fmt.Errorf("parse price: %w", err)
	}
	description := item.Description
	image := sampleImage
	if err := s.sweets.Create(ctx, &models.Sweet{
		Name:        item.Name,
		Description: &description,
		Price:       price,
		Stock:       item.Stock,
		Category:    item.Category,
		ImageURL:    &image,
	}); err != nil {
		return false, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"sweet": item.Name, "stock": item.Stock}), "sweet seeded")
	return true, nil
}
