package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

type cartFixture struct {
	conn *gorm.DB
	svc  Service
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), sweets.NewRepository(conn))
	require.NoError(t, err)
	return &cartFixture{conn: conn, svc: svc}
}

func (f *cartFixture) sweet(t *testing.T, name, price string, stock int) *models.Sweet {
	t.Helper()
	s := &models.Sweet{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "Candy"}
	require.NoError(t, f.conn.Create(s).Error)
	return s
}

func assertCode(t *testing.T, err error, code pkgerrors.Code, message string) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
	if message != "" {
		assert.Equal(t, message, typed.Message())
	}
}

func TestGetCreatesEmptyCartOnce(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	user := uuid.New()

	first, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, first.Items)
	assert.Equal(t, user, first.UserID)

	second, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("user_id = ?", user).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddItemMergesQuantities(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	user := uuid.New()
	fudge := f.sweet(t, "Chocolate Fudge", "5.99", 50)

	item, err := f.svc.AddItem(ctx, user, AddItemInput{SweetID: fudge.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	require.NotNil(t, item.Sweet)
	assert.Equal(t, "Chocolate Fudge", item.Sweet.Name)

	item, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: fudge.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	cart, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.InDelta(t, 29.95, cart.Total, 0.0001)
}

func TestAddItemValidation(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	user := uuid.New()
	candy := f.sweet(t, "Caramel Candy", "3.99", 4)

	_, err := f.svc.AddItem(ctx, user, AddItemInput{Quantity: 1})
	assertCode(t, err, pkgerrors.CodeValidation, "Missing sweetId or quantity")

	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: candy.ID})
	assertCode(t, err, pkgerrors.CodeValidation, "Missing sweetId or quantity")

	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: candy.ID, Quantity: -2})
	assertCode(t, err, pkgerrors.CodeValidation, "Invalid quantity")

	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: uuid.New(), Quantity: 1})
	assertCode(t, err, pkgerrors.CodeNotFound, "Sweet not found")

	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: candy.ID, Quantity: 5})
	assertCode(t, err, pkgerrors.CodeOutOfStock, "Insufficient stock")

	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: candy.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: candy.ID, Quantity: 2})
	assertCode(t, err, pkgerrors.CodeOutOfStock, "Insufficient stock")
}

func TestUpdateItemEnforcesOwnershipAndStock(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	cake := f.sweet(t, "Strawberry Cake", "7.99", 30)

	item, err := f.svc.AddItem(ctx, owner, AddItemInput{SweetID: cake.ID, Quantity: 1})
	require.NoError(t, err)

	updated, err := f.svc.UpdateItem(ctx, owner, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	_, err = f.svc.UpdateItem(ctx, owner, item.ID, 0)
	assertCode(t, err, pkgerrors.CodeValidation, "Invalid quantity")

	_, err = f.svc.UpdateItem(ctx, owner, item.ID, 31)
	assertCode(t, err, pkgerrors.CodeOutOfStock, "Insufficient stock")

	_, err = f.svc.Get(ctx, stranger)
	require.NoError(t, err)
	_, err = f.svc.UpdateItem(ctx, stranger, item.ID, 2)
	assertCode(t, err, pkgerrors.CodeNotFound, "Cart item not found")

	_, err = f.svc.UpdateItem(ctx, owner, uuid.New(), 2)
	assertCode(t, err, pkgerrors.CodeNotFound, "Cart item not found")
}

func TestRemoveAndClear(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.sweet(t, "A", "1.00", 10)
	b := f.sweet(t, "B", "2.00", 10)

	itemA, err := f.svc.AddItem(ctx, user, AddItemInput{SweetID: a.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{SweetID: b.ID, Quantity: 1})
	require.NoError(t, err)

	assertCode(t, f.svc.RemoveItem(ctx, uuid.New(), itemA.ID), pkgerrors.CodeNotFound, "Cart item not found")

	require.NoError(t, f.svc.RemoveItem(ctx, user, itemA.ID))
	assertCode(t, f.svc.RemoveItem(ctx, user, itemA.ID), pkgerrors.CodeNotFound, "Cart item not found")

	cart, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	require.NoError(t, f.svc.Clear(ctx, user))
	cart, err = f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.NoError(t, f.svc.Clear(ctx, uuid.New()), "clearing a missing cart is a no-op")
}

func TestRepositoryClearItemsKeepsCart(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := uuid.New()

	cart, err := repo.GetOrCreate(ctx, user)
	require.NoError(t, err)
	s := &models.Sweet{Name: "Gum", Price: decimal.NewFromInt(1), Stock: 5, Category: "Candy"}
	require.NoError(t, conn.Create(s).Error)
	require.NoError(t, repo.CreateItem(ctx, &models.CartItem{CartID: cart.ID, SweetID: s.ID, Quantity: 2}))

	removed, err := repo.ClearItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	reloaded, err := repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, reloaded.ID)
	assert.Empty(t, reloaded.Items)
}
