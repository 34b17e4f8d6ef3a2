package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/marlinkeeper/aquatrack/internal/config"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

type SubsRepoMock struct{ mock.Mock }

func (m *SubsRepoMock) GetSubscriptionByStripeID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}
func (m *SubsRepoMock) AttachCheckout(ctx context.Context, userUID string, tier models.Tier,
	status models.SubscriptionStatus, customerID, subscriptionID string, trialEndsAt *time.Time) (int, error) {
	args := m.Called(ctx, userUID, tier, status, customerID, subscriptionID, trialEndsAt)
	return args.Int(0), args.Error(1)
}
func (m *SubsRepoMock) MarkInvoicePaid(ctx context.Context, subscriptionID string, periodEnd time.Time) (int, error) {
	args := m.Called(ctx, subscriptionID, periodEnd)
	return args.Int(0), args.Error(1)
}
func (m *SubsRepoMock) SetStatusByStripeID(ctx context.Context, subscriptionID string, status models.SubscriptionStatus) (int, error) {
	args := m.Called(ctx, subscriptionID, status)
	return args.Int(0), args.Error(1)
}
func (m *SubsRepoMock) ApplySnapshot(ctx context.Context, subscriptionID string, upd models.SubscriptionUpdate) (int, error) {
	args := m.Called(ctx, subscriptionID, upd)
	return args.Int(0), args.Error(1)
}

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) InsertEventIfNew(ctx context.Context, event models.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}
func (m *LedgerMock) SetEventError(ctx context.Context, eventID, errMsg string) error {
	return m.Called(ctx, eventID, errMsg).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(subs *SubsRepoMock, ledger *LedgerMock) *Service {
	prices := NewPriceTable(config.Stripe{
		PriceIDStarter: "price_starter",
		PriceIDPlus:    "price_plus",
		PriceIDPro:     "price_pro",
	})
	return New(subs, ledger, prices, newNoopLogger())
}

func event(id string, eventType stripe.EventType, raw string) stripe.Event {
	return stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{Raw: []byte(raw)},
	}
}

// ledgerAccepts настраивает журнал принять событие как новое.
func ledgerAccepts(ledger *LedgerMock) {
	ledger.On("InsertEventIfNew", mock.Anything, mock.Anything).Return(true, nil)
}

func TestProcessEvent_DuplicateAcknowledgedWithoutMutation(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledger.On("InsertEventIfNew", mock.Anything, mock.Anything).Return(false, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "invoice.paid",
		`{"id":"in_1","subscription":"sub_1","period_end":1700000000}`))

	require.NoError(t, err)
	subs.AssertNotCalled(t, "MarkInvoicePaid", mock.Anything, mock.Anything, mock.Anything)
	subs.AssertNotCalled(t, "GetSubscriptionByStripeID", mock.Anything, mock.Anything)
}

func TestProcessEvent_LedgerFailureReturnsErrLedger(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledger.On("InsertEventIfNew", mock.Anything, mock.Anything).
		Return(false, errors.New("connection refused"))

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "invoice.paid", `{}`))

	assert.ErrorIs(t, err, ErrLedger)
	subs.AssertNotCalled(t, "MarkInvoicePaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_UnknownTypeAcknowledged(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "customer.created", `{"id":"cus_1"}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
}

func TestProcessEvent_CheckoutCompletedAttachesSubscription(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	subs.On("AttachCheckout", mock.Anything, "user-1", models.TierPlus, models.StatusActive,
		"cus_1", "sub_1", (*time.Time)(nil)).Return(1, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "checkout.session.completed",
		`{"id":"cs_1","client_reference_id":"user-1","customer":"cus_1","subscription":"sub_1","metadata":{"tier":"plus"}}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
	ledger.AssertNotCalled(t, "SetEventError", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_CheckoutWithTrialStartsTrialing(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	wantTrialEnd := now.AddDate(0, 0, 14)
	subs.On("AttachCheckout", mock.Anything, "user-1", models.TierStarter, models.StatusTrialing,
		"cus_1", "sub_1", mock.MatchedBy(func(t *time.Time) bool {
			return t != nil && t.Equal(wantTrialEnd)
		})).Return(1, nil)

	svc := newService(subs, ledger)
	svc.now = func() time.Time { return now }
	err := svc.ProcessEvent(context.Background(), event("evt_1", "checkout.session.completed",
		`{"id":"cs_1","client_reference_id":"user-1","customer":"cus_1","subscription":"sub_1","metadata":{"tier":"starter","trial_days":"14"}}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
}

func TestProcessEvent_CheckoutWithoutReferenceRecordedAsError(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	ledger.On("SetEventError", mock.Anything, "evt_1", mock.Anything).Return(nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "checkout.session.completed",
		`{"id":"cs_1","customer":"cus_1","subscription":"sub_1","metadata":{"tier":"plus"}}`))

	// событие подтверждается, ошибка остаётся в журнале
	require.NoError(t, err)
	ledger.AssertExpectations(t)
	subs.AssertNotCalled(t, "AttachCheckout",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_InvoicePaidActivatesAndExtendsPeriod(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	subs.On("GetSubscriptionByStripeID", mock.Anything, "sub_1").Return(&models.Subscription{
		Tier:   models.TierPlus,
		Status: models.StatusPastDue,
	}, nil)
	subs.On("MarkInvoicePaid", mock.Anything, "sub_1", time.Unix(1700003600, 0).UTC()).Return(1, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "invoice.paid",
		`{"id":"in_1","subscription":"sub_1","lines":{"data":[{"period":{"start":1697000000,"end":1700003600}}]}}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
	ledger.AssertNotCalled(t, "SetEventError", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_InvoicePaidAfterCancelRecordedAsError(t *testing.T) {
	// canceled — терминальный статус: поздний invoice.paid не воскрешает
	// подписку, расхождение фиксируется в журнале.
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	ledger.On("SetEventError", mock.Anything, "evt_1", mock.Anything).Return(nil)
	subs.On("GetSubscriptionByStripeID", mock.Anything, "sub_1").Return(&models.Subscription{
		Tier:   models.TierPlus,
		Status: models.StatusCanceled,
	}, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "invoice.paid",
		`{"id":"in_1","subscription":"sub_1","period_end":1700000000}`))

	require.NoError(t, err)
	ledger.AssertExpectations(t)
	subs.AssertNotCalled(t, "MarkInvoicePaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_PaymentFailedSetsPastDueKeepsTier(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	subs.On("GetSubscriptionByStripeID", mock.Anything, "sub_1").Return(&models.Subscription{
		Tier:   models.TierPro,
		Status: models.StatusActive,
	}, nil)
	subs.On("SetStatusByStripeID", mock.Anything, "sub_1", models.StatusPastDue).Return(1, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "invoice.payment_failed",
		`{"id":"in_1","subscription":"sub_1"}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
	subs.AssertNotCalled(t, "ApplySnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_SubscriptionUpdatedAppliesFullSnapshot(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)

	periodEnd := time.Unix(1700000000, 0).UTC()
	subs.On("ApplySnapshot", mock.Anything, "sub_1", models.SubscriptionUpdate{
		Tier:              models.TierPro,
		Status:            models.StatusActive,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  &periodEnd,
	}).Return(1, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "customer.subscription.updated",
		`{"id":"sub_1","status":"active","cancel_at_period_end":true,"current_period_end":1700000000,"items":{"data":[{"price":{"id":"price_pro"}}]}}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
}

func TestProcessEvent_SubscriptionUpdatedUnknownPriceRecordedAsError(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	ledger.On("SetEventError", mock.Anything, "evt_1", mock.Anything).Return(nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "customer.subscription.updated",
		`{"id":"sub_1","status":"active","items":{"data":[{"price":{"id":"price_unknown"}}]}}`))

	require.NoError(t, err)
	ledger.AssertExpectations(t)
	subs.AssertNotCalled(t, "ApplySnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessEvent_SubscriptionDeletedCancels(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	subs.On("SetStatusByStripeID", mock.Anything, "sub_1", models.StatusCanceled).Return(1, nil)

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "customer.subscription.deleted",
		`{"id":"sub_1","status":"canceled"}`))

	require.NoError(t, err)
	subs.AssertExpectations(t)
}

func TestProcessEvent_HandlerErrorAcknowledgedAndRecorded(t *testing.T) {
	subs := new(SubsRepoMock)
	ledger := new(LedgerMock)
	ledgerAccepts(ledger)
	ledger.On("SetEventError", mock.Anything, "evt_1", mock.Anything).Return(nil)
	subs.On("SetStatusByStripeID", mock.Anything, "sub_1", models.StatusCanceled).
		Return(0, errors.New("connection reset"))

	svc := newService(subs, ledger)
	err := svc.ProcessEvent(context.Background(), event("evt_1", "customer.subscription.deleted",
		`{"id":"sub_1"}`))

	require.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from models.SubscriptionStatus
		to   models.SubscriptionStatus
		want bool
	}{
		{models.StatusIncomplete, models.StatusActive, true},
		{models.StatusIncomplete, models.StatusTrialing, true},
		{models.StatusTrialing, models.StatusActive, true},
		{models.StatusActive, models.StatusPastDue, true},
		{models.StatusPastDue, models.StatusActive, true},
		{models.StatusActive, models.StatusCanceled, true},
		{models.StatusCanceled, models.StatusCanceled, true},
		{models.StatusCanceled, models.StatusActive, false},
		{models.StatusCanceled, models.StatusPastDue, false},
		{models.StatusIncomplete, models.StatusPastDue, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, validTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestPriceTable_RoundTrip(t *testing.T) {
	prices := NewPriceTable(config.Stripe{
		PriceIDStarter: "price_starter",
		PriceIDPlus:    "price_plus",
		PriceIDPro:     "price_pro",
	})

	for _, tier := range []models.Tier{models.TierStarter, models.TierPlus, models.TierPro} {
		priceID, ok := prices.PriceFor(tier)
		require.True(t, ok)
		got, ok := prices.TierFor(priceID)
		require.True(t, ok)
		assert.Equal(t, tier, got)
	}

	_, ok := prices.PriceFor(models.TierFree)
	assert.False(t, ok)
	_, ok = prices.TierFor("price_unknown")
	assert.False(t, ok)
}
