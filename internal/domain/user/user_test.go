package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/apperror"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/testutil"
)

func TestAddressLifecycle(t *testing.T) {
	db := testutil.NewDB(t, &User{}, &Address{})
	svc := NewAddressService(db, logger.Discard())
	ctx := context.Background()

	u := &User{Email: " Lan@Example.com ", FirstName: "Lan"}
	require.NoError(t, db.Create(u).Error)
	assert.Equal(t, "lan@example.com", u.Email)

	req := &CreateAddressRequest{
		FirstName:    "Lan",
		LastName:     "Nguyen",
		AddressLine1: "12 Ly Thuong Kiet",
		City:         "Ha Noi",
		Country:      "vn",
		Phone:        "0901234567",
	}
	first, err := svc.CreateAddress(ctx, u.ID, req)
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "first address becomes the default")
	assert.Equal(t, "VN", first.Country)

	req.IsDefault = true
	req.AddressLine1 = "7 Tran Hung Dao"
	second, err := svc.CreateAddress(ctx, u.ID, req)
	require.NoError(t, err)

	list, err := svc.ListAddresses(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.False(t, list[1].IsDefault)

	_, err = svc.GetAddress(ctx, u.ID+1, first.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)

	req.Country = "US"
	_, err = svc.CreateAddress(ctx, u.ID, req)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	require.NoError(t, svc.DeleteAddress(ctx, u.ID, first.ID))
	assert.ErrorIs(t, svc.DeleteAddress(ctx, u.ID, first.ID), ErrAddressNotFound)
}

func TestLoadBuyerRejectsBanned(t *testing.T) {
	db := testutil.NewDB(t, &User{}, &Address{})
	svc := NewService(db, logger.Discard())
	ctx := context.Background()

	u := &User{Email: "binh@example.com"}
	require.NoError(t, db.Create(u).Error)

	got, err := LoadBuyer(db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.SetBanned(ctx, u.ID, true)
	require.NoError(t, err)

	_, err = LoadBuyer(db, u.ID)
	assert.ErrorIs(t, err, ErrBanned)

	_, err = LoadBuyer(db, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
