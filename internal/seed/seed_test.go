package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/internal/users"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/security"
)

var seedCfg = config.SeedConfig{AdminEmail: "admin@sweetshop.com", AdminName: "Admin", AdminPassword: "admin123"}

func newSeeder(t *testing.T) (*Seeder, *users.Repository, *sweets.Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	userRepo := users.NewRepository(conn)
	sweetRepo := sweets.NewRepository(conn)
	hasher := security.NewPasswordHasher(config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	s, err := NewSeeder(userRepo, sweetRepo, hasher, seedCfg, nil)
	require.NoError(t, err)
	return s, userRepo, sweetRepo
}

func TestRunIsIdempotent(t *testing.T) {
	s, userRepo, sweetRepo := newSeeder(t)
	ctx := context.Background()

	first, err := s.Run(ctx, Catalog)
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, len(Catalog), first.SweetsCreated)

	admin, err := userRepo.FindByEmail(ctx, seedCfg.AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, admin.Role)
	assert.NotEqual(t, "admin123", admin.PasswordHash)

	fudge, err := sweetRepo.FindByName(ctx, "Chocolate Fudge")
	require.NoError(t, err)
	assert.Equal(t, "5.99", fudge.Price.StringFixed(2))
	assert.Equal(t, 50, fudge.Stock)

	second, err := s.Run(ctx, Catalog)
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Zero(t, second.SweetsCreated)

	total, err := sweetRepo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(Catalog), total)
}

func TestRunKeepsExistingStock(t *testing.T) {
	s, _, sweetRepo := newSeeder(t)
	ctx := context.Background()

	_, err := s.Run(ctx, Catalog[:1])
	require.NoError(t, err)
	fudge, err := sweetRepo.FindByName(ctx, "Chocolate Fudge")
	require.NoError(t, err)
	require.NoError(t, sweetRepo.DecrementStock(ctx, fudge.ID, 10))

	_, err = s.Run(ctx, Catalog[:1])
	require.NoError(t, err)
	fudge, err = sweetRepo.FindByName(ctx, "Chocolate Fudge")
	require.NoError(t, err)
	assert.Equal(t, 40, fudge.Stock)
}

func TestRunCollectsSweetErrors(t *testing.T) {
	s, _, sweetRepo := newSeeder(t)
	ctx := context.Background()

	catalog := []Sweet{
		{Name: "Broken", Price: "not-a-price", Stock: 1, Category: "Candy"},
		{Name: "Also Broken", Price: "??", Stock: 1, Category: "Candy"},
		{Name: "Fine", Price: "1.00", Stock: 1, Category: "Candy"},
	}
	res, err := s.Run(ctx, catalog)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, res.SweetsCreated)

	_, err = sweetRepo.FindByName(ctx, "Fine")
	assert.NoError(t, err)
}

func TestNewSeederValidates(t *testing.T) {
	_, err := NewSeeder(nil, nil, nil, seedCfg, nil)
	assert.Error(t, err)
}
