package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation")                    // 400
	ErrNotFound   = errors.New("not found")                     // 404
	ErrConflict   = errors.New("conflict")                      // 409
	ErrNoRoute    = errors.New("no delivery route for address") // 422
)

var (
	ErrInvalidQuantity = fmt.Errorf("invalid quantity: %w", ErrValidation)
	ErrEmptyCart       = fmt.Errorf("no items in the cart: %w", ErrValidation)
	ErrNoAddress       = fmt.Errorf("address required: %w", ErrValidation)
	ErrOutOfStock      = fmt.Errorf("out of stock: %w", ErrValidation)
	ErrPromoInactive   = fmt.Errorf("promo is not active: %w", ErrValidation)
	ErrPromoExpired    = fmt.Errorf("promo is expired: %w", ErrValidation)
	ErrAlreadyUsed     = fmt.Errorf("promo already used: %w", ErrValidation)
	ErrNotEligible     = fmt.Errorf("promo not eligible for user: %w", ErrValidation)

	ErrOrderNotFound = fmt.Errorf("order not found: %w", ErrNotFound)

	ErrOrderFinalized    = fmt.Errorf("order already checked out: %w", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", ErrConflict)
)

// OutOfStockError names the first line that could not be served.
type OutOfStockError struct {
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s is out of stock", e.ProductName)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

// resultLabel folds an operation outcome into a metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrNoAddress):
		return "no_address"
	case errors.Is(err, ErrNoRoute):
		return "no_route"
	case errors.Is(err, ErrEmptyCart):
		return "empty"
	case errors.Is(err, ErrPromoInactive), errors.Is(err, ErrPromoExpired):
		return "inactive"
	case errors.Is(err, ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return "rejected"
	default:
		return "error"
	}
}
