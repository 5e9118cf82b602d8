package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryzenix/pharmacart/internal/domain/catalog"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
	domain "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/infrastructure/memory"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newTestService(t *testing.T, products ...*catalog.Product) (*Service, *memory.ProductRepository) {
	t.Helper()
	productRepo := memory.NewProductRepository()
	for _, p := range products {
		require.NoError(t, productRepo.Save(context.Background(), p))
	}
	orderRepo := memory.NewOrderRepository(productRepo)
	return NewService(orderRepo, &seqIDs{}, nil), productRepo
}

func activeProduct(id string, price int64, stock int) *catalog.Product {
	return &catalog.Product{
		ID:            id,
		Title:         "Product " + id,
		SKU:           "SKU-" + id,
		Price:         price,
		StockQuantity: stock,
		Status:        catalog.StatusActive,
	}
}

func checkoutInput(items ...CreateItem) CreateInput {
	var total int64
	for _, item := range items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return CreateInput{
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: "12 Elm Street",
	}
}

func stockOf(t *testing.T, repo *memory.ProductRepository, id string) int {
	t.Helper()
	p, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func TestCreateReservesStockAndSnapshots(t *testing.T) {
	svc, products := newTestService(t, activeProduct("p1", 1500, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 3, UnitPrice: 1500}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, domain.PaymentCashOnDelivery, o.PaymentMethod)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.Equal(t, domain.ShippingStandard, o.ShippingMethod)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Product p1", o.Items[0].ProductTitle)
	assert.Equal(t, "SKU-p1", o.Items[0].ProductSKU)
	assert.Equal(t, int64(4500), o.Items[0].TotalPrice)

	assert.Equal(t, 7, stockOf(t, products, "p1"))
}

func TestCreateIsAllOrNothing(t *testing.T) {
	svc, products := newTestService(t,
		activeProduct("p1", 1000, 10),
		activeProduct("p2", 2000, 2),
	)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", checkoutInput(
		CreateItem{ProductID: "p1", Quantity: 2, UnitPrice: 1000},
		CreateItem{ProductID: "p2", Quantity: 5, UnitPrice: 2000},
	))

	var blErr *errs.BusinessLogicError
	require.ErrorAs(t, err, &blErr)
	assert.Equal(t, errs.CodeInsufficientStock, blErr.Code)
	assert.Equal(t, "p2", blErr.Details["product_id"])

	assert.Equal(t, 10, stockOf(t, products, "p1"), "earlier items must not be decremented")
	assert.Equal(t, 2, stockOf(t, products, "p2"))

	page, err := svc.List(ctx, ListInput{OwnerScope: "u1"})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "no partial order may survive a failed checkout")
}

func TestCreateUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "u1",
		checkoutInput(CreateItem{ProductID: "ghost", Quantity: 1, UnitPrice: 100}))

	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, errs.ResourceProduct, nf.Resource)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()
	valid := checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000})

	cases := []struct {
		name   string
		userID string
		mutate func(*CreateInput)
		fields []string
	}{
		{"missing user", "", func(in *CreateInput) {}, []string{"userId"}},
		{"no items", "u1", func(in *CreateInput) { in.Items = nil }, []string{"items"}},
		{"missing address", "u1", func(in *CreateInput) { in.ShippingAddress = "" }, []string{"shippingAddress"}},
		{"negative total", "u1", func(in *CreateInput) { in.TotalAmount = -1 }, []string{"totalAmount"}},
		{"negative shipping cost", "u1", func(in *CreateInput) { in.ShippingCost = -1 }, []string{"shippingCost"}},
		{"bad status", "u1", func(in *CreateInput) { in.Status = "returned" }, []string{"status"}},
		{"bad payment method", "u1", func(in *CreateInput) { in.PaymentMethod = "iou" }, []string{"paymentMethod"}},
		{"bad shipping method", "u1", func(in *CreateInput) { in.ShippingMethod = "drone" }, []string{"shippingMethod"}},
		{
			"bad item fields", "u1",
			func(in *CreateInput) {
				in.Items = []CreateItem{{ProductID: "", Quantity: 0, UnitPrice: 0}}
			},
			[]string{"items[0].productId", "items[0].quantity", "items[0].unitPrice"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			in.Items = append([]CreateItem(nil), valid.Items...)
			tc.mutate(&in)

			_, err := svc.Create(ctx, tc.userID, in)
			var verr *errs.ValidationError
			require.ErrorAs(t, err, &verr)
			for _, f := range tc.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestGetScopesToOwner(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)

	got, err := svc.Get(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = svc.Get(ctx, o.ID, "intruder")
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf, "a foreign order must look exactly like a missing one")
	assert.Equal(t, errs.ResourceOrder, nf.Resource)

	got, err = svc.Get(ctx, o.ID, "")
	require.NoError(t, err, "empty scope reads across owners")
	assert.Equal(t, "u1", got.UserID)
}

func TestListScopingAndPagination(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 100))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "u2", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)

	page, err := svc.List(ctx, ListInput{OwnerScope: "u1", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNextPage)
	assert.False(t, page.HasPrevPage)

	page, err = svc.List(ctx, ListInput{OwnerScope: "u1", Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	assert.False(t, page.HasNextPage)
	assert.True(t, page.HasPrevPage)

	for _, o := range page.Orders {
		assert.Equal(t, "u1", o.UserID)
	}

	page, err = svc.List(ctx, ListInput{OwnerScope: "u1", Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	_, err = svc.List(ctx, ListInput{Status: "returned"})
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestListClampsPaging(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.List(context.Background(), ListInput{Page: -3, Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)
}

func TestCancelRestoresStock(t *testing.T) {
	svc, products := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 4, UnitPrice: 1000}))
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, products, "p1"))

	cancelled, err := svc.Cancel(ctx, CancelInput{
		OrderID:    o.ID,
		ActorID:    "u1",
		ReasonCode: string(domain.ReasonChangedMind),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, domain.ReasonChangedMind, cancelled.CancellationReason)

	assert.Equal(t, 10, stockOf(t, products, "p1"), "cancellation must return every reserved unit")

	got, err := svc.Get(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestCancelTwiceReleasesStockOnce(t *testing.T) {
	svc, products := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 4, UnitPrice: 1000}))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "u1"})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "u1"})
	var blErr *errs.BusinessLogicError
	require.ErrorAs(t, err, &blErr)
	assert.Equal(t, errs.CodeNotCancellable, blErr.Code)
	assert.Equal(t, "cancelled", blErr.Details["current_status"])

	assert.Equal(t, 10, stockOf(t, products, "p1"), "stock must not be restored twice")
}

func TestConcurrentCancelReleasesStockOnce(t *testing.T) {
	svc, products := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 4, UnitPrice: 1000}))
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, products, "p1"))

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "u1"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var blErr *errs.BusinessLogicError
		require.ErrorAs(t, err, &blErr)
		assert.Equal(t, errs.CodeNotCancellable, blErr.Code)
		assert.Equal(t, "cancelled", blErr.Details["current_status"])
	}

	assert.Equal(t, 1, succeeded, "exactly one racing cancel may win")
	assert.Equal(t, 10, stockOf(t, products, "p1"), "stock restored exactly once regardless of interleaving")
}

func TestCancelNamesBlockingStatus(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, o.ID, "shipped"))

	_, err = svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "u1"})
	var blErr *errs.BusinessLogicError
	require.ErrorAs(t, err, &blErr)
	assert.Equal(t, "shipped", blErr.Details["current_status"])
	assert.Contains(t, blErr.Message, "'shipped'")
}

func TestCancelScopesToOwnerUnlessPrivileged(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "intruder"})
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)

	cancelled, err := svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "pharmacist-1", Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
}

func TestCancelReasonValidation(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "u1", ReasonCode: "bored"})
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "reasonCode")

	_, err = svc.Cancel(ctx, CancelInput{OrderID: o.ID, ActorID: "u1", ReasonCode: string(domain.ReasonOther)})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "reason")

	cancelled, err := svc.Cancel(ctx, CancelInput{
		OrderID:    o.ID,
		ActorID:    "u1",
		ReasonCode: string(domain.ReasonOther),
		ReasonText: "pharmacy asked me to reorder",
	})
	require.NoError(t, err)
	assert.Equal(t, "pharmacy asked me to reorder", cancelled.Notes)
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, o.ID, "confirmed"))
	got, err := svc.Get(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	var verr *errs.ValidationError
	require.ErrorAs(t, svc.UpdateStatus(ctx, o.ID, "returned"), &verr)
	require.ErrorAs(t, svc.UpdateStatus(ctx, o.ID, "cancelled"), &verr,
		"cancellation must go through Cancel so stock is released")

	var nf *errs.NotFoundError
	require.ErrorAs(t, svc.UpdateStatus(ctx, "ghost", "confirmed"), &nf)
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, _ := newTestService(t, activeProduct("p1", 1000, 10))
	ctx := context.Background()

	o, err := svc.Create(ctx, "u1", checkoutInput(CreateItem{ProductID: "p1", Quantity: 1, UnitPrice: 1000}))
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePaymentStatus(ctx, o.ID, "paid"))
	got, err := svc.Get(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	var verr *errs.ValidationError
	require.ErrorAs(t, svc.UpdatePaymentStatus(ctx, o.ID, "settled"), &verr)
}

func TestConcurrentCheckoutNeverOversells(t *testing.T) {
	svc, products := newTestService(t, activeProduct("p1", 1000, 5))
	ctx := context.Background()

	const attempts = 4
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "u1",
				checkoutInput(CreateItem{ProductID: "p1", Quantity: 2, UnitPrice: 1000}))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var blErr *errs.BusinessLogicError
		require.ErrorAs(t, err, &blErr)
		assert.Equal(t, errs.CodeInsufficientStock, blErr.Code)
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, stockOf(t, products, "p1"), "reserved stock must never go negative")
}
