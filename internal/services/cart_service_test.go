package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/repositories"
	"agora/internal/services"
)

func seedProduct(t *testing.T, repo *repositories.MockProductRepository, name string, price float64, stock int, active bool) string {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: stock, Active: active}
	assert.NoError(t, repo.Create(p))
	return p.ID
}

func TestCartService_AddToCart_Validation(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()

	_, err := service.AddToCart(cart, "", 1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	id := seedProduct(t, repo, "Widget", 9.99, 10, true)

	_, err = service.AddToCart(cart, id, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = service.AddToCart(cart, id, services.MaxLineQuantity+1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.Equal(t, 0, cart.Count())
}

func TestCartService_AddToCart_UnknownProduct(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()

	_, err := service.AddToCart(cart, "does-not-exist", 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 0, cart.Count())
}

func TestCartService_AddToCart_InactiveProduct(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Retired Widget", 9.99, 10, false)

	_, err := service.AddToCart(cart, id, 1)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	assert.Equal(t, 0, cart.Quantity(id))
}

func TestCartService_AddToCart_Success(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Widget", 9.99, 10, true)

	result, err := service.AddToCart(cart, id, 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 3, result.Quantity)
	assert.Nil(t, result.Warning)

	// Adding again accumulates on the same line.
	result, err = service.AddToCart(cart, id, 2)
	assert.NoError(t, err)
	assert.Equal(t, 5, result.Quantity)
	assert.Equal(t, 5, cart.Quantity(id))
}

func TestCartService_AddToCart_ClampsToStock(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Scarce Widget", 9.99, 5, true)

	_, err := service.AddToCart(cart, id, 3)
	assert.NoError(t, err)

	// Requesting 4 more with only 2 left clamps the line to stock and
	// reports the shortfall.
	result, err := service.AddToCart(cart, id, 4)
	assert.NoError(t, err)
	assert.Equal(t, 4, result.Requested)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 5, result.Quantity)
	assert.NotNil(t, result.Warning)
	assert.Equal(t, apperr.KindPartialFulfillment, result.Warning.Kind)
	assert.Equal(t, 5, cart.Quantity(id))
}

func TestCartService_AddToCart_LimitReached(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Scarce Widget", 9.99, 5, true)

	_, err := service.AddToCart(cart, id, 5)
	assert.NoError(t, err)

	_, err = service.AddToCart(cart, id, 1)
	assert.True(t, apperr.Is(err, apperr.KindLimitReached))
	assert.Equal(t, 5, cart.Quantity(id))
}

func TestCartService_AddToCart_UntrackedStock(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()

	// Stock 0 means the product is not stock-tracked.
	id := seedProduct(t, repo, "Digital Download", 4.99, 0, true)

	result, err := service.AddToCart(cart, id, 500)
	assert.NoError(t, err)
	assert.Equal(t, 500, result.Quantity)
	assert.Nil(t, result.Warning)
}

func TestCartService_BulkUpdate_PerLineIndependence(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()

	goodID := seedProduct(t, repo, "Widget", 9.99, 10, true)
	scarceID := seedProduct(t, repo, "Scarce Widget", 9.99, 3, true)
	inactiveID := seedProduct(t, repo, "Retired Widget", 9.99, 10, false)
	cart.Set(goodID, 1)
	cart.Set(scarceID, 1)
	cart.Set(inactiveID, 1)
	cart.Set("ghost", 2)

	result, err := service.BulkUpdate(cart, map[string]int{
		goodID:     4,
		scarceID:   7,
		inactiveID: 2,
		"ghost":    3,
	})
	assert.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Len(t, result.Issues, 3)

	// The good line applied despite the issues on its neighbors.
	assert.Equal(t, 4, cart.Quantity(goodID))
	// Over-stock clamped.
	assert.Equal(t, 3, cart.Quantity(scarceID))
	// Inactive and missing products were dropped from the cart.
	assert.Equal(t, 0, cart.Quantity(inactiveID))
	assert.Equal(t, 0, cart.Quantity("ghost"))

	codes := make(map[string]string)
	for _, iss := range result.Issues {
		codes[iss.ProductID] = iss.Code
	}
	assert.Equal(t, "stock_adjusted", codes[scarceID])
	assert.Equal(t, "unavailable", codes[inactiveID])
	assert.Equal(t, "not_found", codes["ghost"])
}

func TestCartService_BulkUpdate_InvalidQuantities(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Widget", 9.99, 10, true)
	cart.Set(id, 2)

	result, err := service.BulkUpdate(cart, map[string]int{id: -1})
	assert.NoError(t, err)
	assert.Len(t, result.Issues, 1)
	assert.Equal(t, "validation", result.Issues[0].Code)
	// Invalid lines leave the cart untouched.
	assert.Equal(t, 2, cart.Quantity(id))

	// Quantity zero removes the line.
	result, err = service.BulkUpdate(cart, map[string]int{id: 0})
	assert.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Empty(t, result.Issues)
	assert.Equal(t, 0, cart.Quantity(id))
}

func TestCartService_RemoveFromCart(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Widget", 9.99, 10, true)
	cart.Set(id, 2)

	assert.NoError(t, service.RemoveFromCart(cart, id))
	assert.Equal(t, 0, cart.Quantity(id))

	err := service.RemoveFromCart(cart, id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCartService_ClearCart(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	cart.Set("a", 1)
	cart.Set("b", 2)

	service.ClearCart(cart)
	assert.Equal(t, 0, cart.Count())
}

func TestCartService_AdminAddItem_RequiresAdmin(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	id := seedProduct(t, repo, "Widget", 9.99, 10, true)

	_, err := service.AdminAddItem(cart, nil, id, 1)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	regular := &models.User{ID: "u1", Role: models.RoleUser}
	_, err = service.AdminAddItem(cart, regular, id, 1)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	admin := &models.User{ID: "a1", Role: models.RoleAdmin}
	result, err := service.AdminAddItem(cart, admin, id, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Quantity)
}

func TestCartService_AdminSetQuantity(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}
	id := seedProduct(t, repo, "Scarce Widget", 9.99, 3, true)

	_, err := service.AdminSetQuantity(cart, &models.User{ID: "u1", Role: models.RoleUser}, id, 1)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	result, err := service.AdminSetQuantity(cart, admin, id, 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Quantity)
	assert.Nil(t, result.Warning)

	// Over-stock requests are clamped with a warning.
	result, err = service.AdminSetQuantity(cart, admin, id, 10)
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Quantity)
	assert.NotNil(t, result.Warning)
	assert.Equal(t, apperr.KindStockAdjusted, result.Warning.Kind)
	assert.Equal(t, 3, cart.Quantity(id))

	// Quantity zero removes the line.
	result, err = service.AdminSetQuantity(cart, admin, id, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Quantity)
	assert.Equal(t, 0, cart.Quantity(id))
}

func TestCartService_AdminSetQuantity_RemovesDeadLines(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	service := services.NewCartService(repo)
	cart := models.NewCart()
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}

	cart.Set("ghost", 2)
	_, err := service.AdminSetQuantity(cart, admin, "ghost", 5)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 0, cart.Quantity("ghost"))

	inactiveID := seedProduct(t, repo, "Retired Widget", 9.99, 10, false)
	cart.Set(inactiveID, 2)
	_, err = service.AdminSetQuantity(cart, admin, inactiveID, 5)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	assert.Equal(t, 0, cart.Quantity(inactiveID))
}

func TestComputeTotals(t *testing.T) {
	products := []models.Product{
		{ID: "p1", Name: "Widget", Price: 10.00, Active: true},
		{ID: "p2", Name: "Gadget", Price: 2.75, Active: true},
	}
	cart := models.NewCart()
	cart.Set("p1", 2)
	cart.Set("p2", 2)
	cart.Set("ghost", 9)

	totals := services.ComputeTotals(cart, products)

	// The unresolvable line is skipped silently.
	assert.Len(t, totals.Lines, 2)
	assert.InDelta(t, 25.50, totals.Subtotal, 0.0001)

	// Lines come back ordered by product name.
	assert.Equal(t, "Gadget", totals.Lines[0].Product.Name)
	assert.Equal(t, "Widget", totals.Lines[1].Product.Name)
	assert.InDelta(t, 5.50, totals.Lines[0].Total, 0.0001)
	assert.InDelta(t, 20.00, totals.Lines[1].Total, 0.0001)
}

func TestComputeTotals_EmptyCart(t *testing.T) {
	totals := services.ComputeTotals(models.NewCart(), nil)
	assert.Empty(t, totals.Lines)
	assert.Zero(t, totals.Subtotal)
}
