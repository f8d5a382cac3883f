package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/events"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverKey = "SB-Mid-server-test"

type paymentFixture struct {
	store     *memStore
	gateway   *fakeGateway
	publisher *recordingPublisher
	svc       *PaymentService
	user      *models.User
}

func newPaymentFixture() *paymentFixture {
	store := newMemStore()
	user := store.addUser("Andi", "6281311112222")
	gw := &fakeGateway{statuses: map[string]*payments.StatusResult{}}
	pub := &recordingPublisher{}
	svc := NewPaymentService(store, gw, pub, serverKey, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC) }
	return &paymentFixture{store: store, gateway: gw, publisher: pub, svc: svc, user: user}
}

func (f *paymentFixture) addOrder(method models.ShippingMethod, status models.OrderStatus) *models.Order {
	id := uuid.New()
	o := &models.Order{
		ID: id, UserID: f.user.ID, Quantity: 1, UnitPrice: 50000, Subtotal: 50000, Total: 50000,
		ShippingMethod: method, Status: status, PaymentReference: payments.Reference(payments.KindOrder, id),
	}
	f.store.orders[id] = o
	return o
}

func (f *paymentFixture) addRegistration(status models.RegistrationStatus) *models.ActivityRegistration {
	id := uuid.New()
	r := &models.ActivityRegistration{
		ID: id, UserID: f.user.ID, Status: status, TotalPrice: 80000,
		PaymentReference: payments.Reference(payments.KindRegistration, id),
	}
	f.store.registrations[id] = r
	return r
}

func signed(ref, status, fraud string) *payments.Notification {
	n := &payments.Notification{
		OrderID:           ref,
		StatusCode:        "200",
		GrossAmount:       "50000.00",
		TransactionStatus: status,
		FraudStatus:       fraud,
		TransactionID:     "txn-" + ref,
	}
	n.SignatureKey = payments.Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return n
}

func TestNotificationSettlesOrder(t *testing.T) {
	f := newPaymentFixture()
	o := f.addOrder(models.ShippingDelivery, models.OrderPending)

	err := f.svc.HandleNotification(context.Background(), signed(o.PaymentReference, "settlement", ""), []byte(`{"transaction_status":"settlement"}`))
	require.NoError(t, err)

	stored := f.store.orders[o.ID]
	assert.Equal(t, models.OrderPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	require.NotNil(t, stored.GatewayTransactionID)
	assert.Equal(t, "txn-"+o.PaymentReference, *stored.GatewayTransactionID)

	require.Len(t, f.store.notifications, 1)
	assert.Equal(t, models.NotificationProcessed, f.store.notifications[0].Result)

	evts := f.publisher.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.OrderStatusChanged, evts[0].Type)
	assert.Equal(t, "PENDING", evts[0].From)
	assert.Equal(t, "PAID", evts[0].To)
}

func TestNotificationIsIdempotent(t *testing.T) {
	f := newPaymentFixture()
	o := f.addOrder(models.ShippingPickup, models.OrderPending)
	n := signed(o.PaymentReference, "settlement", "")

	require.NoError(t, f.svc.HandleNotification(context.Background(), n, nil))
	require.NoError(t, f.svc.HandleNotification(context.Background(), n, nil))

	assert.Equal(t, models.OrderPaid, f.store.orders[o.ID].Status)
	assert.Len(t, f.publisher.all(), 1)
	require.Len(t, f.store.notifications, 2)
	assert.Equal(t, models.NotificationIgnored, f.store.notifications[1].Result)
}

func TestNotificationDoesNotMoveTerminalRecords(t *testing.T) {
	f := newPaymentFixture()
	o := f.addOrder(models.ShippingPickup, models.OrderCancelled)
	r := f.addRegistration(models.RegistrationPaid)

	require.NoError(t, f.svc.HandleNotification(context.Background(), signed(o.PaymentReference, "settlement", ""), nil))
	require.NoError(t, f.svc.HandleNotification(context.Background(), signed(r.PaymentReference, "expire", ""), nil))

	assert.Equal(t, models.OrderCancelled, f.store.orders[o.ID].Status)
	assert.Equal(t, models.RegistrationPaid, f.store.registrations[r.ID].Status)
	assert.Empty(t, f.publisher.all())
}

func TestNotificationOutcomes(t *testing.T) {
	tests := []struct {
		status, fraud string
		wantOrder     models.OrderStatus
		wantReg       models.RegistrationStatus
	}{
		{"settlement", "", models.OrderPaid, models.RegistrationPaid},
		{"capture", "accept", models.OrderPaid, models.RegistrationPaid},
		{"capture", "challenge", models.OrderPending, models.RegistrationPending},
		{"pending", "", models.OrderPending, models.RegistrationPending},
		{"deny", "", models.OrderCancelled, models.RegistrationFailed},
		{"failure", "", models.OrderCancelled, models.RegistrationFailed},
		{"cancel", "", models.OrderCancelled, models.RegistrationCancelled},
		{"expire", "", models.OrderCancelled, models.RegistrationCancelled},
		{"refund", "", models.OrderPending, models.RegistrationPending},
	}
	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.fraud, func(t *testing.T) {
			f := newPaymentFixture()
			o := f.addOrder(models.ShippingDelivery, models.OrderPending)
			r := f.addRegistration(models.RegistrationPending)

			require.NoError(t, f.svc.HandleNotification(context.Background(), signed(o.PaymentReference, tt.status, tt.fraud), nil))
			require.NoError(t, f.svc.HandleNotification(context.Background(), signed(r.PaymentReference, tt.status, tt.fraud), nil))

			assert.Equal(t, tt.wantOrder, f.store.orders[o.ID].Status)
			assert.Equal(t, tt.wantReg, f.store.registrations[r.ID].Status)
		})
	}
}

func TestNotificationRejectsBadSignature(t *testing.T) {
	f := newPaymentFixture()
	o := f.addOrder(models.ShippingPickup, models.OrderPending)
	n := signed(o.PaymentReference, "settlement", "")
	n.GrossAmount = "1.00"

	err := f.svc.HandleNotification(context.Background(), n, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, models.OrderPending, f.store.orders[o.ID].Status)
	assert.Empty(t, f.store.notifications)
}

func TestNotificationUnknownRecord(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleNotification(context.Background(), signed(payments.Reference(payments.KindOrder, uuid.New()), "settlement", ""), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, f.store.notifications, 1)
	assert.Equal(t, models.NotificationFailed, f.store.notifications[0].Result)

	require.NoError(t, f.svc.HandleNotification(context.Background(), signed("INV-123", "settlement", ""), nil))
	assert.Equal(t, models.NotificationIgnored, f.store.notifications[1].Result)
}

func TestSyncFromGateway(t *testing.T) {
	f := newPaymentFixture()
	r := f.addRegistration(models.RegistrationPending)
	f.gateway.statuses[r.PaymentReference] = &payments.StatusResult{
		Reference: r.PaymentReference, TransactionID: "t-1", TransactionStatus: "settlement",
	}

	res, err := f.svc.SyncFromGateway(context.Background(), r.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, payments.KindRegistration, res.Kind)
	assert.Equal(t, "PAID", res.Status)
	assert.Equal(t, payments.OutcomePaid, res.Outcome)

	_, err = f.svc.SyncFromGateway(context.Background(), payments.Reference(payments.KindOrder, uuid.New()))
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = f.svc.SyncFromGateway(context.Background(), "nonsense")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSyncFromGatewayWithoutTransaction(t *testing.T) {
	f := newPaymentFixture()
	r := f.addRegistration(models.RegistrationPending)
	f.gateway.statuses[r.PaymentReference] = nil

	_, err := f.svc.SyncFromGateway(context.Background(), r.PaymentReference)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUpstream)
	assert.Equal(t, models.RegistrationPending, f.store.registrations[r.ID].Status)
}

func TestDeliveryLifecycle(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.addOrder(models.ShippingDelivery, models.OrderPaid)

	_, err := f.svc.MarkShipped(ctx, o.ID, "jne", "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ConfirmReceived(ctx, f.user.ID, o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.MarkPickedUp(ctx, o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	shipped, err := f.svc.MarkShipped(ctx, o.ID, "jne", "JNE0012345")
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipping, shipped.Status)
	assert.Equal(t, "JNE0012345", *f.store.orders[o.ID].TrackingNumber)
	require.NotNil(t, f.store.orders[o.ID].ShippedAt)

	_, err = f.svc.ConfirmReceived(ctx, uuid.New(), o.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := f.svc.ConfirmReceived(ctx, f.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, done.Status)

	_, err = f.svc.CancelOrder(ctx, o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, f.publisher.all(), 2)
}

func TestPickupLifecycle(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.addOrder(models.ShippingPickup, models.OrderPaid)

	_, err := f.svc.MarkShipped(ctx, o.ID, "", "RESI1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := f.svc.MarkPickedUp(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, done.Status)
	require.NotNil(t, f.store.orders[o.ID].CompletedAt)
}

func TestCancelPending(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.addOrder(models.ShippingPickup, models.OrderPending)
	r := f.addRegistration(models.RegistrationPending)

	_, err := f.svc.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.svc.CancelRegistration(ctx, r.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderCancelled, f.store.orders[o.ID].Status)
	assert.Equal(t, models.RegistrationCancelled, f.store.registrations[r.ID].Status)

	_, err = f.svc.CancelRegistration(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStaleStatusIsReported(t *testing.T) {
	f := newPaymentFixture()
	o := f.addOrder(models.ShippingPickup, models.OrderPending)

	order, err := f.store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	f.store.orders[o.ID].Status = models.OrderCancelled

	_, err = f.svc.persistOrder(context.Background(), order, models.OrderPaid, nil)
	assert.ErrorIs(t, err, ErrStaleStatus)
}
