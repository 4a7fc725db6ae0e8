package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/testutil"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Service, *gorm.DB, *product.Product, *product.Product) {
	t.Helper()
	db := testutil.NewDB(t,
		&product.Product{}, &product.Specification{}, &product.ProductVariant{}, &product.VariantOption{},
		&Cart{}, &CartItem{},
	)

	shirt := &product.Product{
		Name: "Áo sơ mi", Slug: "ao-so-mi", Price: 250000, Stock: 10, IsActive: true,
		Variants: []product.ProductVariant{{
			Name: "Size",
			Options: []product.VariantOption{
				{Value: "M", Stock: 3},
				{Value: "L", Stock: 1, AdditionalPrice: 10000},
			},
		}},
	}
	mug := &product.Product{Name: "Cốc sứ", Slug: "coc-su", Price: 80000, Stock: 5, IsActive: true}
	require.NoError(t, db.Create(shirt).Error)
	require.NoError(t, db.Create(mug).Error)

	return NewService(db, logger.Discard()), db, shirt, mug
}

func TestAddItemMergesLines(t *testing.T) {
	svc, _, shirt, mug := setup(t)
	ctx := context.Background()
	owner := Owner{SessionID: "sess-1"}

	_, err := svc.AddItem(ctx, owner, &AddItemRequest{ProductID: shirt.ID, Variant: product.VariantSelection{Name: "Size", Value: "M"}, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, &AddItemRequest{ProductID: shirt.ID, Variant: product.VariantSelection{Name: "size", Value: "m"}, Quantity: 2})
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, owner, &AddItemRequest{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, int64(750000), view.Items[0].LineTotal)
	assert.Equal(t, Totals{ItemCount: 2, TotalQuantity: 5, Subtotal: 910000}, view.Totals)

	_, err = svc.AddItem(ctx, owner, &AddItemRequest{ProductID: shirt.ID, Variant: product.VariantSelection{Name: "Size", Value: "M"}, Quantity: 1})
	assert.ErrorIs(t, err, ErrQuantityUnavailable)

	_, err = svc.AddItem(ctx, owner, &AddItemRequest{ProductID: shirt.ID, Variant: product.VariantSelection{Name: "Size", Value: "XXL"}, Quantity: 1})
	assert.ErrorIs(t, err, product.ErrVariantNotFound)

	_, err = svc.AddItem(ctx, Owner{}, &AddItemRequest{ProductID: mug.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestUpdateAndRemove(t *testing.T) {
	svc, _, _, mug := setup(t)
	ctx := context.Background()
	uid := uint(42)
	owner := Owner{UserID: &uid}

	view, err := svc.AddItem(ctx, owner, &AddItemRequest{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := view.Items[0].ItemID

	view, err = svc.UpdateItem(ctx, owner, itemID, &UpdateItemRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, owner, itemID, &UpdateItemRequest{Quantity: 6})
	assert.ErrorIs(t, err, ErrQuantityUnavailable)

	other := uint(7)
	_, err = svc.UpdateItem(ctx, Owner{UserID: &other}, itemID, &UpdateItemRequest{Quantity: 2})
	assert.ErrorIs(t, err, ErrItemNotFound)

	view, err = svc.UpdateItem(ctx, owner, itemID, &UpdateItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, int64(0), view.Totals.Subtotal)
}

func TestCouponSnapshotAndClear(t *testing.T) {
	svc, db, _, mug := setup(t)
	ctx := context.Background()
	owner := Owner{SessionID: "sess-2"}

	assert.ErrorIs(t, svc.SetCoupon(ctx, owner, coupon.Snapshot{Code: "TEN10", Discount: 10}), ErrEmpty)

	_, err := svc.AddItem(ctx, owner, &AddItemRequest{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, svc.SetCoupon(ctx, owner, coupon.Snapshot{Code: "TEN10", Discount: 10}))

	view, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, view.Coupon)
	assert.Equal(t, "TEN10", view.Coupon.Code)

	c, err := Load(db, owner)
	require.NoError(t, err)
	require.NoError(t, Clear(db, c.ID))

	view, err = svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Nil(t, view.Coupon)
	assert.Equal(t, c.ID, view.CartID, "cart row survives clearing")

	_, err = Load(db, owner)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestUnavailableProductIsFlagged(t *testing.T) {
	svc, db, _, mug := setup(t)
	ctx := context.Background()
	owner := Owner{SessionID: "sess-3"}

	_, err := svc.AddItem(ctx, owner, &AddItemRequest{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, db.Model(mug).Update("is_active", false).Error)

	view, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.NotEmpty(t, view.Items[0].Problem)

	c, err := Load(db, owner)
	require.NoError(t, err)
	_, err = c.Lines()
	assert.ErrorIs(t, err, product.ErrUnavailable)
}

func TestMergeSessionCart(t *testing.T) {
	svc, _, shirt, mug := setup(t)
	ctx := context.Background()
	uid := uint(9)
	guest := Owner{SessionID: "sess-4"}
	user := Owner{UserID: &uid}

	_, err := svc.AddItem(ctx, user, &AddItemRequest{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guest, &AddItemRequest{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guest, &AddItemRequest{ProductID: shirt.ID, Variant: product.VariantSelection{Name: "Size", Value: "L"}, Quantity: 1})
	require.NoError(t, err)

	view, err := svc.MergeSessionCart(ctx, "sess-4", uid)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, int64(260000), view.Items[1].UnitPrice)

	guestView, err := svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, guestView.Items)
}
