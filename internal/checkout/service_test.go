package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/checkout/mocks"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/remote"
	"github.com/imrishuroy/go-storefront-orderflow/internal/storage"
)

type fixture struct {
	svc       *Service
	queue     *orders.Queue
	submitter *mocks.MockSubmitter
	ledger    *mocks.MockLedger
	metrics   *mocks.MockMetricsRecorder
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		queue:     orders.NewQueue(storage.NewMemorySlot(), nil),
		submitter: mocks.NewMockSubmitter(ctrl),
		ledger:    mocks.NewMockLedger(ctrl),
		metrics:   mocks.NewMockMetricsRecorder(ctrl),
	}
	f.svc = NewService(orders.NewFactory(orders.DefaultShippingFee), f.queue, f.submitter, f.ledger, f.metrics, time.Second, nil)
	return f
}

func filledCart() *cart.Store {
	c := cart.NewStore()
	c.SignIn()
	c.AddItem(cart.Product{ID: "1", Name: "Yakan runner", Price: decimal.RequireFromString("50.00")}, 2)
	return c
}

func validRequest() Request {
	return Request{
		ShippingAddress: orders.ShippingAddress{
			Street: "12 Mabini St", City: "Lamitan", Province: "Basilan", ZipCode: "7302", PhoneNumber: "09171234567",
		},
		PaymentMethod: orders.PaymentGCash,
	}
}

func TestPlaceOrder_Synced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(nil)
	f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("501", nil)
	f.ledger.EXPECT().MarkDone(gomock.Any(), gomock.Any(), "501").Return(nil)
	f.metrics.EXPECT().Count(gomock.Any(), aws.MetricOrdersSubmitted, "gcash").Return(nil)

	c := filledCart()
	out, err := f.svc.PlaceOrder(ctx, c, validRequest())
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if out.SyncErr != nil || out.PersistErr != nil {
		t.Fatalf("unexpected outcome errors: %+v", out)
	}
	if out.Order.Status != orders.StatusPendingConfirmation || out.Order.RemoteID != "501" {
		t.Fatalf("unexpected order %+v", out.Order)
	}
	if !out.Order.Total.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("total = %s", out.Order.Total)
	}
	if c.Count() != 0 {
		t.Fatalf("cart should be cleared after checkout")
	}

	stored, err := f.svc.Get(ctx, out.Order.OrderRef)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.RemoteID != "501" || stored.Status != orders.StatusPendingConfirmation {
		t.Fatalf("queue not updated: %+v", stored)
	}
}

func TestPlaceOrder_SyncFailureKeepsOrderLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	syncErr := &remote.SyncError{OrderRef: "x", Transient: true, Err: errors.New("connection refused")}

	f.ledger.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(nil)
	f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", syncErr)
	f.ledger.EXPECT().MarkFailed(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.metrics.EXPECT().Count(gomock.Any(), aws.MetricOrdersSyncFailed, "gcash").Return(nil)

	out, err := f.svc.PlaceOrder(ctx, filledCart(), validRequest())
	if err != nil {
		t.Fatalf("sync failure must not fail checkout: %v", err)
	}
	if !errors.Is(out.SyncErr, syncErr) {
		t.Fatalf("SyncErr = %v", out.SyncErr)
	}
	if out.Order.Status != orders.StatusPendingConfirmation || out.Order.RemoteID != "" {
		t.Fatalf("unexpected order %+v", out.Order)
	}

	list, err := f.queue.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].OrderRef != out.Order.OrderRef {
		t.Fatalf("order not retrievable: %+v", list)
	}
	if list[0].Status != orders.StatusPendingConfirmation || list[0].RemoteID != "" {
		t.Fatalf("stored order = %+v", list[0])
	}
}

func TestPlaceOrder_ValidationBlocksEverything(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.ShippingAddress.City = ""

	c := filledCart()
	out, err := f.svc.PlaceOrder(context.Background(), c, req)
	var ve *orders.ValidationError
	if !errors.As(err, &ve) || ve.Field != "city" {
		t.Fatalf("expected city ValidationError, got %v", err)
	}
	if out != nil {
		t.Fatalf("no outcome expected on validation failure")
	}
	if c.Count() != 2 {
		t.Fatalf("cart must be kept on validation failure")
	}
	list, _ := f.queue.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("nothing may be queued on validation failure")
	}
}

func TestSubmit_InFlightIsRefused(t *testing.T) {
	f := newFixture(t)
	o := orders.Order{OrderRef: "ORD-00000001", Status: orders.StatusPendingPayment}

	f.ledger.EXPECT().Begin(gomock.Any(), "ORD-00000001").Return(idempotency.ErrSubmissionInFlight)

	out := f.svc.Submit(context.Background(), o)
	if !errors.Is(out.SyncErr, idempotency.ErrSubmissionInFlight) {
		t.Fatalf("SyncErr = %v", out.SyncErr)
	}
	if out.Order.Status != orders.StatusPendingPayment {
		t.Fatalf("order must be untouched")
	}
}

func TestSubmit_SurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.ledger.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(nil)
	f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, o orders.Order) (string, error) {
		if ctx.Err() != nil {
			t.Errorf("submission context already cancelled: %v", ctx.Err())
		}
		return "9", nil
	})
	f.ledger.EXPECT().MarkDone(gomock.Any(), gomock.Any(), "9").Return(nil)
	f.metrics.EXPECT().Count(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	out, err := f.svc.PlaceOrder(ctx, filledCart(), validRequest())
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if out.Order.RemoteID != "9" {
		t.Fatalf("result not written: %+v", out.Order)
	}
}

func TestRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("offline")),
		f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("777", nil),
	)
	f.ledger.EXPECT().MarkFailed(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.ledger.EXPECT().MarkDone(gomock.Any(), gomock.Any(), "777").Return(nil)
	f.metrics.EXPECT().Count(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	first, err := f.svc.PlaceOrder(ctx, filledCart(), validRequest())
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	ref := first.Order.OrderRef

	out, err := f.svc.Retry(ctx, ref)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if out.Order.RemoteID != "777" {
		t.Fatalf("remote id = %q", out.Order.RemoteID)
	}
	if _, err := f.svc.Retry(ctx, ref); !errors.Is(err, idempotency.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if _, err := f.svc.Retry(ctx, "ORD-404"); !errors.Is(err, orders.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(nil)
	f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("offline"))
	f.ledger.EXPECT().MarkFailed(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.metrics.EXPECT().Count(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	out, _ := f.svc.PlaceOrder(ctx, filledCart(), validRequest())
	ref := out.Order.OrderRef

	o, err := f.svc.Cancel(ctx, ref)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.Status != orders.StatusCancelled {
		t.Fatalf("status = %s", o.Status)
	}
	if _, err := f.svc.Cancel(ctx, ref); !errors.Is(err, orders.ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
	if _, err := f.svc.Retry(ctx, ref); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}
}

func TestCreate_PersistenceFailureStillReturnsOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	metrics := mocks.NewMockMetricsRecorder(ctrl)
	metrics.EXPECT().Count(gomock.Any(), aws.MetricOrdersPersistFailed, "gcash").Return(nil)

	q := orders.NewQueue(brokenSlot{}, nil)
	svc := NewService(orders.NewFactory(orders.DefaultShippingFee), q, remote.NoopSubmitter{}, idempotency.NewGuard(), metrics, time.Second, nil)

	o, err := svc.Create(context.Background(), filledCart(), validRequest())
	var pe *orders.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if o.OrderRef == "" || !o.Total.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("in-memory order lost: %+v", o)
	}
}

type brokenSlot struct{}

func (brokenSlot) Read(ctx context.Context) ([]byte, error) { return nil, errors.New("io error") }

func (brokenSlot) Write(ctx context.Context, data []byte) error { return errors.New("io error") }

func fixedClock() time.Time { return time.UnixMilli(1_712_345_678_901) }

// seedOrders queues n orders for another customer, issued from a separate
// generator that shares the service's clock.
func seedOrders(t *testing.T, q *orders.Queue, n int) []orders.Order {
	t.Helper()
	other := orders.NewFactory(orders.DefaultShippingFee, orders.WithClock(fixedClock))
	seeded := make([]orders.Order, 0, n)
	for i := 0; i < n; i++ {
		o, err := other.CreateOrder(filledCart().Items(), validRequest().ShippingAddress, orders.PaymentGCash)
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		o = o.WithCustomer(orders.Customer{ID: "alice"})
		if err := q.Append(context.Background(), o); err != nil {
			t.Fatalf("seed Append: %v", err)
		}
		seeded = append(seeded, o)
	}
	return seeded
}

func TestPlaceOrder_TakenRefIsReissued(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	q := orders.NewQueue(storage.NewMemorySlot(), nil)
	alice := seedOrders(t, q, 1)[0]

	submitter := mocks.NewMockSubmitter(ctrl)
	submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, o orders.Order) (string, error) {
		if o.OrderRef == alice.OrderRef {
			t.Errorf("submitted with a taken ref %s", o.OrderRef)
		}
		return "777", nil
	})
	svc := NewService(orders.NewFactory(orders.DefaultShippingFee, orders.WithClock(fixedClock)), q, submitter, idempotency.NewGuard(), nil, time.Second, nil)

	req := validRequest()
	req.Customer = &orders.Customer{ID: "bob"}
	out, err := svc.PlaceOrder(ctx, filledCart(), req)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if out.Order.OrderRef == alice.OrderRef || !out.Order.OwnedBy("bob") || out.Order.RemoteID != "777" {
		t.Fatalf("unexpected order %+v", out.Order)
	}

	list, err := q.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected both orders queued, got %d", len(list))
	}
	stored, _ := q.Get(ctx, alice.OrderRef)
	if stored == nil || !stored.OwnedBy("alice") || stored.RemoteID != "" || stored.Status != orders.StatusPendingPayment {
		t.Fatalf("existing order changed: %+v", stored)
	}
}

func TestPlaceOrder_NoFreeRefBlocksCheckout(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	q := orders.NewQueue(storage.NewMemorySlot(), nil)
	seedOrders(t, q, maxRefAttempts)

	// no Submit, Begin or Count expectations: any call fails the test
	svc := NewService(orders.NewFactory(orders.DefaultShippingFee, orders.WithClock(fixedClock)), q,
		mocks.NewMockSubmitter(ctrl), mocks.NewMockLedger(ctrl), mocks.NewMockMetricsRecorder(ctrl), time.Second, nil)

	c := filledCart()
	out, err := svc.PlaceOrder(ctx, c, validRequest())
	if !errors.Is(err, orders.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
	if out != nil {
		t.Fatalf("no outcome expected, got %+v", out)
	}
	if c.Count() != 2 {
		t.Fatalf("cart must be kept when the order was not queued")
	}
	list, _ := q.List(ctx)
	if len(list) != maxRefAttempts {
		t.Fatalf("queue changed: %d orders", len(list))
	}
}

// cancellingSubmitter runs onSubmit before answering and records remote cancels.
type cancellingSubmitter struct {
	onSubmit  func(ctx context.Context, o orders.Order)
	remoteID  string
	cancelled []string
}

func (s *cancellingSubmitter) Submit(ctx context.Context, o orders.Order) (string, error) {
	s.onSubmit(ctx, o)
	return s.remoteID, nil
}

func (s *cancellingSubmitter) CancelOrder(ctx context.Context, remoteID string) error {
	s.cancelled = append(s.cancelled, remoteID)
	return nil
}

func TestSubmit_CancelDuringSubmissionCancelsRemotely(t *testing.T) {
	ctx := context.Background()
	q := orders.NewQueue(storage.NewMemorySlot(), nil)
	sub := &cancellingSubmitter{remoteID: "888"}
	svc := NewService(orders.NewFactory(orders.DefaultShippingFee), q, sub, idempotency.NewGuard(), nil, time.Second, nil)
	sub.onSubmit = func(ctx context.Context, o orders.Order) {
		if _, err := svc.Cancel(ctx, o.OrderRef); err != nil {
			t.Errorf("Cancel: %v", err)
		}
	}

	out, err := svc.PlaceOrder(ctx, filledCart(), validRequest())
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if out.Order.Status != orders.StatusCancelled {
		t.Fatalf("cancel was overwritten: %+v", out.Order)
	}
	if len(sub.cancelled) != 1 || sub.cancelled[0] != "888" {
		t.Fatalf("remote cancels = %v", sub.cancelled)
	}
}
