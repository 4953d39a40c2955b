package services

import (
	"errors"
	"sort"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/repositories"
)

// MaxLineQuantity is the largest quantity a single cart line may hold.
const MaxLineQuantity = 999

// CartService keeps a session cart consistent with live catalog truth.
// Stock and active-state checks re-read the catalog on every mutation:
// the cart is a view reconciled against authoritative state, not a
// cached copy. No product rows are locked, so two concurrent adds can
// both pass a stock check against a stale read; that race is accepted.
type CartService struct {
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(products repositories.ProductRepository) *CartService {
	return &CartService{products: products}
}

// AddResult reports the outcome of adding a product to the cart.
// Warning carries a PartialFulfillment note when the requested quantity
// was clamped to the available stock.
type AddResult struct {
	ProductID string        `json:"product_id"`
	Requested int           `json:"requested"`
	Added     int           `json:"added"`
	Quantity  int           `json:"quantity"`
	Warning   *apperr.Error `json:"-"`
}

// AddToCart increments the cart line for a product after validating
// quantity range, product existence, active state and stock. When finite
// stock permits only part of the request, the line is clamped to stock
// and the result carries a PartialFulfillment warning; when nothing can
// be added the operation fails with LimitReached and the cart is left
// unchanged.
func (s *CartService) AddToCart(cart models.Cart, productID string, qty int) (*AddResult, error) {
	if productID == "" {
		return nil, apperr.New(apperr.KindValidation, "a product must be selected")
	}
	if qty < 1 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be at least 1")
	}
	if qty > MaxLineQuantity {
		return nil, apperr.New(apperr.KindValidation, "quantity cannot exceed %d", MaxLineQuantity)
	}

	product, err := s.products.GetByID(productID)
	if err != nil {
		return nil, lookupErr(err, "product not found")
	}
	if !product.Active {
		return nil, apperr.New(apperr.KindUnavailable, "%s is not available", product.Name)
	}

	current := cart.Quantity(productID)
	if product.StockTracked() && current+qty > product.Stock {
		available := product.Stock - current
		if available <= 0 {
			return nil, apperr.New(apperr.KindLimitReached,
				"the maximum available quantity of %s is already in the cart", product.Name)
		}
		cart.Set(productID, product.Stock)
		return &AddResult{
			ProductID: productID,
			Requested: qty,
			Added:     available,
			Quantity:  product.Stock,
			Warning: apperr.New(apperr.KindPartialFulfillment,
				"only %d of %d item(s) could be added; %s has %d in stock", available, qty, product.Name, product.Stock),
		}, nil
	}

	cart.Set(productID, current+qty)
	return &AddResult{ProductID: productID, Requested: qty, Added: qty, Quantity: current + qty}, nil
}

// LineIssue is one non-blocking note produced while reconciling a batch
// cart update.
type LineIssue struct {
	ProductID string `json:"product_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BulkUpdateResult aggregates the per-line outcomes of a batch update.
type BulkUpdateResult struct {
	Changed bool        `json:"changed"`
	Issues  []LineIssue `json:"issues,omitempty"`
}

func issue(id string, kind apperr.Kind, msg string) LineIssue {
	return LineIssue{ProductID: id, Code: kind.String(), Message: msg}
}

// BulkUpdate applies a map of desired quantities to the cart. Each entry
// is validated independently: one invalid entry never aborts the batch.
// Quantity 0 removes the line; lines referencing missing or inactive
// products are removed and noted; quantities above finite stock are
// clamped and noted with StockAdjusted.
func (s *CartService) BulkUpdate(cart models.Cart, updates map[string]int) (*BulkUpdateResult, error) {
	result := &BulkUpdateResult{}

	for productID, qty := range updates {
		if productID == "" {
			result.Issues = append(result.Issues, issue(productID, apperr.KindValidation, "invalid product ID"))
			continue
		}
		if qty < 0 {
			result.Issues = append(result.Issues, issue(productID, apperr.KindValidation, "quantity cannot be negative"))
			continue
		}
		if qty > MaxLineQuantity {
			result.Issues = append(result.Issues, issue(productID, apperr.KindValidation, "quantity cannot exceed 999"))
			continue
		}

		product, err := s.products.GetByID(productID)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				return nil, apperr.Wrap(apperr.KindStorage, err, "data access failed")
			}
			result.Issues = append(result.Issues, issue(productID, apperr.KindNotFound, "product not found; removed from cart"))
			cart.Remove(productID)
			result.Changed = true
			continue
		}
		if !product.Active {
			result.Issues = append(result.Issues,
				issue(productID, apperr.KindUnavailable, product.Name+" is no longer available and was removed from the cart"))
			cart.Remove(productID)
			result.Changed = true
			continue
		}
		if product.StockTracked() && qty > product.Stock {
			result.Issues = append(result.Issues,
				issue(productID, apperr.KindStockAdjusted, product.Name+": quantity adjusted to available stock"))
			cart.Set(productID, product.Stock)
			result.Changed = true
			continue
		}

		if cart.Quantity(productID) != qty {
			result.Changed = true
		}
		cart.Set(productID, qty)
	}

	return result, nil
}

// RemoveFromCart deletes a line, failing with NotFound when the product
// is not in the cart.
func (s *CartService) RemoveFromCart(cart models.Cart, productID string) error {
	if productID == "" {
		return apperr.New(apperr.KindValidation, "invalid product ID")
	}
	if !cart.Remove(productID) {
		return apperr.New(apperr.KindNotFound, "item not found in cart")
	}
	return nil
}

// ClearCart unconditionally empties the cart.
func (s *CartService) ClearCart(cart models.Cart) {
	cart.Clear()
}

// AdminAddItem adds a product on behalf of the session, callable only by
// admins. Admins are not exempt from stock clamping.
func (s *CartService) AdminAddItem(cart models.Cart, actor *models.User, productID string, qty int) (*AddResult, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access only")
	}
	return s.AddToCart(cart, productID, qty)
}

// SetResult reports the outcome of an admin quantity override.
type SetResult struct {
	ProductID string        `json:"product_id"`
	Quantity  int           `json:"quantity"`
	Warning   *apperr.Error `json:"-"`
}

// AdminSetQuantity overwrites a cart line's quantity, callable only by
// admins. Quantity 0 removes the line. Missing or inactive products are
// removed from the cart and reported; over-stock quantities are clamped
// with a StockAdjusted warning.
func (s *CartService) AdminSetQuantity(cart models.Cart, actor *models.User, productID string, qty int) (*SetResult, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access only")
	}
	if productID == "" {
		return nil, apperr.New(apperr.KindValidation, "invalid product ID")
	}
	if qty < 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity cannot be negative")
	}
	if qty > MaxLineQuantity {
		return nil, apperr.New(apperr.KindValidation, "quantity cannot exceed %d", MaxLineQuantity)
	}

	product, err := s.products.GetByID(productID)
	if err != nil {
		cart.Remove(productID)
		return nil, lookupErr(err, "product not found; removed from cart")
	}
	if !product.Active {
		cart.Remove(productID)
		return nil, apperr.New(apperr.KindUnavailable, "%s is no longer available; removed from cart", product.Name)
	}
	if product.StockTracked() && qty > product.Stock {
		cart.Set(productID, product.Stock)
		return &SetResult{
			ProductID: productID,
			Quantity:  product.Stock,
			Warning: apperr.New(apperr.KindStockAdjusted,
				"only %d item(s) available; quantity set to maximum", product.Stock),
		}, nil
	}

	cart.Set(productID, qty)
	return &SetResult{ProductID: productID, Quantity: qty}, nil
}

// ComputeTotals prices a cart against a catalog snapshot. It is a pure
// function: lines whose product no longer resolves are skipped silently,
// treated as already reconciled. Lines are ordered by product name.
func ComputeTotals(cart models.Cart, products []models.Product) models.CartTotals {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	totals := models.CartTotals{Lines: make([]models.CartLine, 0, len(cart))}
	for id, qty := range cart {
		p, ok := byID[id]
		if !ok {
			continue
		}
		line := models.CartLine{Product: p, Quantity: qty, Total: float64(qty) * p.Price}
		totals.Lines = append(totals.Lines, line)
		totals.Subtotal += line.Total
	}
	sort.Slice(totals.Lines, func(i, j int) bool {
		return totals.Lines[i].Product.Name < totals.Lines[j].Product.Name
	})
	return totals
}
