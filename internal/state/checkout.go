package state

import (
	"errors"

	"shopping-portal/internal/domain"
)

// CheckoutResult is how a checkout attempt ended
type CheckoutResult int

const (
	CheckoutOK CheckoutResult = iota
	CheckoutEmptyCart
	CheckoutFailed
)

func (r CheckoutResult) String() string {
	switch r {
	case CheckoutOK:
		return "ok"
	case CheckoutEmptyCart:
		return "empty_cart"
	default:
		return "failed"
	}
}

// checkoutStep is the next thing the checkout procedure needs done
type checkoutStep int

const (
	stepRefetch checkoutStep = iota
	stepPost
	stepDone
)

// checkoutPlan is one state of the checkout procedure
type checkoutPlan struct {
	step   checkoutStep
	cartID int64
	result CheckoutResult
	err    error
}

// planCheckout picks the branch: a cart already known to be non-empty is
// ordered directly, anything else is fetched again first
func planCheckout(local *domain.Cart) checkoutPlan {
	if local.IsEmpty() {
		return checkoutPlan{step: stepRefetch}
	}
	return checkoutPlan{step: stepPost, cartID: local.ID}
}

// afterRefetch decides what the re-fetched cart allows. A rejected fetch
// (including "no cart") counts as an empty cart.
func afterRefetch(fresh *domain.Cart, err error) checkoutPlan {
	switch {
	case err == nil && !fresh.IsEmpty():
		return checkoutPlan{step: stepPost, cartID: fresh.ID}
	case err == nil, errors.Is(err, domain.ErrRejected):
		return checkoutPlan{step: stepDone, result: CheckoutEmptyCart, err: err}
	default:
		return checkoutPlan{step: stepDone, result: CheckoutFailed, err: err}
	}
}

// afterPost maps the order creation outcome to a result
func afterPost(err error) checkoutPlan {
	if err != nil {
		return checkoutPlan{step: stepDone, result: CheckoutFailed, err: err}
	}
	return checkoutPlan{step: stepDone, result: CheckoutOK}
}
