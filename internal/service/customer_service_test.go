package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

func TestResolveFindsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customerRepo.EXPECT().FindByNameOrEmail(gomock.Any(), "Acme Trading Ltd", "").Return(lowRiskCustomer(), nil)

	c, created, err := f.customers.Resolve(ctx, "Acme Trading Ltd", "", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "cust-1", c.ID)
}

func TestResolveRetriesCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customerRepo.EXPECT().FindByNameOrEmail(gomock.Any(), "Globex Corporation", "ar@globex.test").Return(nil, apperror.ErrNotFound)
	gomock.InOrder(
		f.codes.EXPECT().Next(gomock.Any()).Return(int64(7), nil),
		f.customerRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: customers_customer_code_key", apperror.ErrDuplicate)),
		f.codes.EXPECT().Next(gomock.Any()).Return(int64(8), nil),
		f.customerRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
	)

	c, created, err := f.customers.Resolve(ctx, "Globex Corporation", "ar@globex.test", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "AUTO_008", c.CustomerCode)
	assert.Equal(t, models.RiskLow, c.RiskLevel)
	assert.Equal(t, models.DefaultPaymentTerms, c.PaymentTerms)
	assert.Equal(t, "ar@globex.test", *c.Email)
}

func TestResolveGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customerRepo.EXPECT().FindByNameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrNotFound)
	f.codes.EXPECT().Next(gomock.Any()).Return(int64(1), nil).Times(maxCodeAttempts)
	f.customerRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(apperror.ErrDuplicate).Times(maxCodeAttempts)

	_, _, err := f.customers.Resolve(ctx, "Globex Corporation", "", true)
	requireAppError(t, err, http.StatusConflict, "CODE_ALLOCATION_FAILED")
}

func TestResolveWithoutAutoCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customerRepo.EXPECT().FindByNameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrNotFound)

	_, _, err := f.customers.Resolve(ctx, "Unknown KK", "", false)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCreateCustomerWithExplicitDuplicateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customerRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(apperror.ErrDuplicate)

	_, err := f.customers.Create(ctx, CustomerInput{CustomerCode: "CUST001", Name: "Acme"})
	requireAppError(t, err, http.StatusConflict, "DUPLICATE")
}

func TestCreateCustomerAllocatesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.codes.EXPECT().Next(gomock.Any()).Return(int64(42), nil)
	f.customerRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	c, err := f.customers.Create(ctx, CustomerInput{Name: "Initech Systems", RiskLevel: models.RiskHigh})
	require.NoError(t, err)
	assert.Equal(t, "CUST042", c.CustomerCode)
	assert.Equal(t, models.RiskHigh, c.RiskLevel)
	assert.True(t, c.IsActive)
}

func TestUpdateCustomerCodeIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)

	_, err := f.customers.Update(ctx, "cust-1", CustomerInput{CustomerCode: "CUST999"})
	requireAppError(t, err, http.StatusBadRequest, "CODE_IMMUTABLE")
}

func TestDeleteCustomer(t *testing.T) {
	manager := models.Actor{UserID: "m", Role: models.RoleManager}

	t.Run("user role is rejected", func(t *testing.T) {
		f := newFixture(t)
		err := f.customers.Delete(context.Background(), models.Actor{Role: models.RoleUser}, "cust-1")
		requireAppError(t, err, http.StatusForbidden, "")
	})

	t.Run("referenced customer is kept", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)
		f.discrepancies.EXPECT().CountByCustomer(gomock.Any(), "cust-1").Return(3, nil)

		err := f.customers.Delete(ctx, manager, "cust-1")
		requireAppError(t, err, http.StatusBadRequest, "CUSTOMER_HAS_DISCREPANCIES")
	})

	t.Run("unreferenced customer is removed", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.customerRepo.EXPECT().GetByID(gomock.Any(), "cust-1").Return(lowRiskCustomer(), nil)
		f.discrepancies.EXPECT().CountByCustomer(gomock.Any(), "cust-1").Return(0, nil)
		f.customerRepo.EXPECT().Delete(gomock.Any(), "cust-1").Return(nil)

		require.NoError(t, f.customers.Delete(ctx, manager, "cust-1"))
	})

	t.Run("missing customer", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.customerRepo.EXPECT().GetByID(gomock.Any(), "nope").Return(nil, apperror.ErrNotFound)

		err := f.customers.Delete(ctx, manager, "nope")
		requireAppError(t, err, http.StatusNotFound, "")
	})
}
