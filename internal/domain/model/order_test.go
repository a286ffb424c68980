package model_test

import (
	"errors"
	"testing"

	"cartengine/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from model.OrderStatus
		to   model.OrderStatus
		role model.Role
		want bool
	}{
		{model.OrderStatusPending, model.OrderStatusProcessing, model.RoleVendor, true},
		{model.OrderStatusPending, model.OrderStatusProcessing, model.RoleBuyer, false},
		{model.OrderStatusProcessing, model.OrderStatusShipped, model.RoleVendor, true},
		{model.OrderStatusShipped, model.OrderStatusDelivered, model.RoleVendor, true},
		{model.OrderStatusPending, model.OrderStatusShipped, model.RoleVendor, false},

		{model.OrderStatusPending, model.OrderStatusCancelled, model.RoleBuyer, true},
		{model.OrderStatusProcessing, model.OrderStatusCancelled, model.RoleSystem, true},
		{model.OrderStatusShipped, model.OrderStatusCancelled, model.RoleBuyer, false},
		{model.OrderStatusShipped, model.OrderStatusCancelled, model.RoleVendor, false},

		{model.OrderStatusDelivered, model.OrderStatusReturnRequested, model.RoleBuyer, true},
		{model.OrderStatusPending, model.OrderStatusReturnRequested, model.RoleBuyer, false},
		{model.OrderStatusReturnRequested, model.OrderStatusReturnApproved, model.RoleVendor, true},
		{model.OrderStatusReturnRequested, model.OrderStatusReturnRejected, model.RoleVendor, true},
		{model.OrderStatusReturnRequested, model.OrderStatusReturnApproved, model.RoleBuyer, false},
		{model.OrderStatusReturnApproved, model.OrderStatusReturnCompleted, model.RoleVendor, true},

		{model.OrderStatusCancelled, model.OrderStatusPending, model.RoleVendor, false},
		{model.OrderStatusReturnCompleted, model.OrderStatusReturnRequested, model.RoleBuyer, false},
	}

	for _, tc := range cases {
		got := model.CanTransition(tc.from, tc.to, tc.role)
		assert.Equal(t, tc.want, got, "%s -> %s as %s", tc.from, tc.to, tc.role)
	}
}

func TestTerminalStatusesHaveNoNext(t *testing.T) {
	for _, s := range []model.OrderStatus{
		model.OrderStatusCancelled, model.OrderStatusReturnCompleted, model.OrderStatusReturnRejected,
	} {
		assert.True(t, s.Terminal())
		for _, role := range []model.Role{model.RoleBuyer, model.RoleVendor, model.RoleSystem} {
			assert.Empty(t, model.NextStatuses(s, role), "%s as %s", s, role)
		}
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t,
		[]model.OrderStatus{model.OrderStatusProcessing, model.OrderStatusCancelled},
		model.NextStatuses(model.OrderStatusPending, model.RoleVendor))
	assert.Equal(t,
		[]model.OrderStatus{model.OrderStatusCancelled},
		model.NextStatuses(model.OrderStatusPending, model.RoleBuyer))
	assert.Equal(t,
		[]model.OrderStatus{model.OrderStatusReturnRequested},
		model.NextStatuses(model.OrderStatusDelivered, model.RoleBuyer))
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, model.OrderStatusReturnApproved.Valid())
	assert.False(t, model.OrderStatus("PAID").Valid())
	assert.True(t, model.PaymentMethodCOD.Valid())
	assert.False(t, model.PaymentMethod("card").Valid())
}

func TestParseRole(t *testing.T) {
	r, ok := model.ParseRole("vendor")
	assert.True(t, ok)
	assert.Equal(t, model.RoleVendor, r)

	r, ok = model.ParseRole("BUYER")
	assert.True(t, ok)
	assert.Equal(t, model.RoleBuyer, r)

	_, ok = model.ParseRole("SYSTEM")
	assert.False(t, ok)
	_, ok = model.ParseRole("ADMIN")
	assert.False(t, ok)
}

func TestInsufficientStockError(t *testing.T) {
	var err error = &model.InsufficientStockError{ProductID: 3, Requested: 5, Available: 2}
	assert.True(t, errors.Is(err, model.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "available 2")

	err = &model.InsufficientStockError{ProductID: 3, Requested: 5, Available: -1}
	assert.NotContains(t, err.Error(), "available")
}

func TestProductUnitPrice(t *testing.T) {
	assert.Equal(t, int64(900), model.Product{OriginalPrice: 1000, DiscountedPrice: 900}.UnitPrice())
	assert.Equal(t, int64(1000), model.Product{OriginalPrice: 1000}.UnitPrice())
}
