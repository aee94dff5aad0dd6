package coordinatorserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	inventoryapp "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/application"
	inventoryports "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
	ordersapp "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/application"
	ordersports "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	apierrors "github.com/Apurer/order-inventory-coordinator/internal/shared/errors"
)

var (
	inventoryResponder = apierrors.NewResponder("", inventoryErrorMapper)
	orderResponder     = apierrors.NewResponder("", orderErrorMapper)
)

func inventoryErrorMapper(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, inventoryports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, inventoryapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, inventoryports.ErrReservationConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func orderErrorMapper(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrInsufficientInventory):
		return apierrors.ErrInsufficientInventory.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ordersports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func respondBadBody(c *gin.Context, responder *apierrors.Responder, err error) {
	responder.BadRequest(c, err.Error())
}
