package btcinvoice_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kwabenaio/sika/internal/btcinvoice"
	"github.com/kwabenaio/sika/internal/pricing"
	"github.com/kwabenaio/sika/internal/processor"
	"github.com/kwabenaio/sika/internal/transfer"
	"github.com/kwabenaio/sika/internal/versioned"
)

type serviceMocks struct {
	repo      *btcinvoice.MockRepository
	rtx       *btcinvoice.MockReconcileTx
	prices    *btcinvoice.MockPricing
	transfers *btcinvoice.MockTransfers
	notifier  *transfer.MockNotifier
}

type fakeClient struct {
	create func(ctx context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error)
}

func (f *fakeClient) CreateInvoice(ctx context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error) {
	return f.create(ctx, req)
}

func (f *fakeClient) VerifyCallback(r *http.Request, body []byte) error { return nil }

func (f *fakeClient) ParseCallback(body []byte) (*processor.Callback, error) { return nil, nil }

func newService(t *testing.T, client processor.Client) (*btcinvoice.Service, serviceMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)

	m := serviceMocks{
		repo:      btcinvoice.NewMockRepository(ctrl),
		rtx:       btcinvoice.NewMockReconcileTx(ctrl),
		prices:    btcinvoice.NewMockPricing(ctrl),
		transfers: btcinvoice.NewMockTransfers(ctrl),
		notifier:  transfer.NewMockNotifier(ctrl),
	}

	processors := processor.NewService(map[processor.Kind]processor.Client{
		processor.KindGoCoin: client,
	})

	svc := btcinvoice.NewService(
		m.repo, processors, m.prices, m.transfers, m.notifier,
		"https://api.sika.example/webhooks", 15*time.Minute,
	)

	return svc, m
}

func pendingTransfer() *transfer.Transfer {
	return &transfer.Transfer{
		ID:           uuid.New(),
		Sender:       uuid.New(),
		PricingID:    uuid.New(),
		SentAmount:   100,
		SentCurrency: pricing.GBP,
		State:        transfer.StateInit,
	}
}

func unpaidInvoice(due float64) *btcinvoice.Invoice {
	now := time.Now().UTC()

	return &btcinvoice.Invoice{
		ID:         uuid.New(),
		TransferID: uuid.New(),
		Processor:  processor.KindGoCoin,
		InvoiceID:  "gc-1001",
		BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
		BTCRate:    48000,
		BalanceDue: due,
		State:      btcinvoice.StateUnpaid,
		CreatedAt:  now.Add(-time.Minute),
		ExpiresAt:  now.Add(14 * time.Minute),
	}
}

func TestServiceInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotReq processor.InvoiceRequest

		client := &fakeClient{
			create: func(_ context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error) {
				gotReq = req

				return &processor.InvoiceResult{
					InvoiceID:  "gc-1001",
					BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
					BTCRate:    48000,
					BTCAmount:  0.0021,
				}, nil
			},
		}

		svc, m := newService(t, client)
		tr := pendingTransfer()

		m.repo.EXPECT().GetByTransfer(ctx, tr.ID).Return(nil, btcinvoice.ErrNotFound)
		m.prices.EXPECT().GetVersion(ctx, tr.PricingID).Return(&pricing.Version{
			Record:      versioned.Record{ID: tr.PricingID, Start: time.Now()},
			Site:        "gh",
			Markup:      0.03,
			Fee:         1.5,
			FeeCurrency: pricing.GBP,
		}, nil)
		m.repo.EXPECT().CreateInvoice(ctx, gomock.Any()).Return(nil)

		inv, err := svc.Initiate(ctx, tr, processor.KindGoCoin)
		require.NoError(t, err)

		assert.InDelta(t, 101.5, gotReq.Amount, 1e-9)
		assert.Equal(t, "GBP", gotReq.Currency)
		assert.Equal(t, "https://api.sika.example/webhooks/gocoin", gotReq.CallbackURL)

		assert.Equal(t, tr.ID, inv.TransferID)
		assert.Equal(t, btcinvoice.StateUnpaid, inv.State)
		assert.InDelta(t, 0.0021, inv.BalanceDue, 1e-9)
		assert.Equal(t, 15*time.Minute, inv.ExpiresAt.Sub(inv.CreatedAt))
	})

	t.Run("FeeInOtherCurrency", func(t *testing.T) {
		var gotAmount float64

		client := &fakeClient{
			create: func(_ context.Context, req processor.InvoiceRequest) (*processor.InvoiceResult, error) {
				gotAmount = req.Amount

				return &processor.InvoiceResult{InvoiceID: "gc-1002", BTCAmount: 0.003}, nil
			},
		}

		svc, m := newService(t, client)

		tr := pendingTransfer()
		tr.SentAmount = 200
		tr.SentCurrency = pricing.USD

		m.repo.EXPECT().GetByTransfer(ctx, tr.ID).Return(nil, btcinvoice.ErrNotFound)
		m.prices.EXPECT().GetVersion(ctx, tr.PricingID).Return(&pricing.Version{
			Fee:         1.5,
			FeeCurrency: pricing.GBP,
		}, nil)
		m.prices.EXPECT().CurrentRates(ctx).Return(&pricing.RateSet{
			Rates: map[pricing.Currency]float64{pricing.USD: 1.6},
		}, nil)
		m.repo.EXPECT().CreateInvoice(ctx, gomock.Any()).Return(nil)

		_, err := svc.Initiate(ctx, tr, processor.KindGoCoin)
		require.NoError(t, err)

		// 1.50 GBP is 2.40 USD at 1.6 to the pound.
		assert.InDelta(t, 202.4, gotAmount, 1e-9)
	})

	t.Run("ProcessorFailure", func(t *testing.T) {
		client := &fakeClient{
			create: func(context.Context, processor.InvoiceRequest) (*processor.InvoiceResult, error) {
				return nil, errors.New("upstream 502")
			},
		}

		svc, m := newService(t, client)
		tr := pendingTransfer()

		m.repo.EXPECT().GetByTransfer(ctx, tr.ID).Return(nil, btcinvoice.ErrNotFound)
		m.prices.EXPECT().GetVersion(ctx, tr.PricingID).Return(&pricing.Version{}, nil)

		_, err := svc.Initiate(ctx, tr, processor.KindGoCoin)
		assert.ErrorIs(t, err, btcinvoice.ErrPaymentProcessor)
	})

	t.Run("UnknownProcessor", func(t *testing.T) {
		svc, _ := newService(t, &fakeClient{})

		_, err := svc.Initiate(ctx, pendingTransfer(), processor.Kind("bitpay"))
		assert.Error(t, err)
	})

	t.Run("SecondInvoiceRejected", func(t *testing.T) {
		client := &fakeClient{
			create: func(context.Context, processor.InvoiceRequest) (*processor.InvoiceResult, error) {
				t.Fatal("a second processor invoice must never be minted")
				return nil, nil
			},
		}

		svc, m := newService(t, client)
		tr := pendingTransfer()

		m.repo.EXPECT().GetByTransfer(ctx, tr.ID).Return(unpaidInvoice(0.002), nil)

		_, err := svc.Initiate(ctx, tr, processor.KindGoCoin)
		assert.ErrorIs(t, err, btcinvoice.ErrAlreadyInvoiced)
	})
}

func TestServiceRecordPayment(t *testing.T) {
	ctx := context.Background()

	notice := func(amount float64) btcinvoice.PaymentNotice {
		return btcinvoice.PaymentNotice{
			InputTxHash: "tx-aaa",
			Amount:      amount,
			ReceivedAt:  time.Now().UTC(),
		}
	}

	t.Run("FullPaymentSettles", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.02)
		tr := &transfer.Transfer{ID: inv.TransferID, State: transfer.StatePaid}

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(false, nil)
		m.rtx.EXPECT().AddPayment(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, p *btcinvoice.Payment) error {
			assert.Equal(t, btcinvoice.PaymentPending, p.State)
			assert.InDelta(t, 0.02, p.Amount, 1e-12)
			return nil
		})
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().MarkTransferPaid(ctx, inv.TransferID, gomock.Any()).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)
		m.transfers.EXPECT().Get(ctx, inv.TransferID).Return(tr, nil)
		m.notifier.EXPECT().TransferPaid(ctx, tr)

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, notice(0.02)))

		assert.Equal(t, btcinvoice.StatePaid, inv.State)
		assert.InDelta(t, 0, inv.BalanceDue, 1e-12)
	})

	t.Run("DuplicateDeliveryIgnored", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.02)

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(true, nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, notice(0.02)))

		// Balance untouched; a second delivery never settles twice.
		assert.InDelta(t, 0.02, inv.BalanceDue, 1e-12)
		assert.Equal(t, btcinvoice.StateUnpaid, inv.State)
	})

	t.Run("RedeliveryWithConfirmationFlipsPayment", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0)
		inv.State = btcinvoice.StatePaid

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(true, nil)
		m.rtx.EXPECT().ConfirmPayment(ctx, "tx-aaa").Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		confirmed := btcinvoice.PaymentNotice{
			InputTxHash: "tx-aaa",
			Amount:      0.02,
			ReceivedAt:  time.Now().UTC(),
			Confirmed:   true,
		}

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, confirmed))

		// The amount is never applied twice.
		assert.InDelta(t, 0, inv.BalanceDue, 1e-12)
	})

	t.Run("OverpaySettlesWithNegativeBalance", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.01)
		tr := &transfer.Transfer{ID: inv.TransferID, State: transfer.StatePaid}

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(false, nil)
		m.rtx.EXPECT().AddPayment(ctx, gomock.Any()).Return(nil)
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().MarkTransferPaid(ctx, inv.TransferID, gomock.Any()).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)
		m.transfers.EXPECT().Get(ctx, inv.TransferID).Return(tr, nil)
		m.notifier.EXPECT().TransferPaid(ctx, tr)

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, notice(0.015)))

		assert.Equal(t, btcinvoice.StatePaid, inv.State)
		assert.InDelta(t, -0.005, inv.BalanceDue, 1e-12)
	})

	t.Run("UnderpayThenTopUp", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.02)

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(false, nil)
		m.rtx.EXPECT().AddPayment(ctx, gomock.Any()).Return(nil)
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, notice(0.01)))

		assert.Equal(t, btcinvoice.StateUnderpaid, inv.State)
		assert.InDelta(t, 0.01, inv.BalanceDue, 1e-12)

		// Second payment clears the remainder and settles the invoice.
		tr := &transfer.Transfer{ID: inv.TransferID, State: transfer.StatePaid}

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-bbb").Return(false, nil)
		m.rtx.EXPECT().AddPayment(ctx, gomock.Any()).Return(nil)
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().MarkTransferPaid(ctx, inv.TransferID, gomock.Any()).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)
		m.transfers.EXPECT().Get(ctx, inv.TransferID).Return(tr, nil)
		m.notifier.EXPECT().TransferPaid(ctx, tr)

		topUp := btcinvoice.PaymentNotice{
			InputTxHash: "tx-bbb",
			Amount:      0.01,
			ReceivedAt:  time.Now().UTC(),
		}

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, topUp))

		assert.Equal(t, btcinvoice.StatePaid, inv.State)
		assert.InDelta(t, 0, inv.BalanceDue, 1e-12)
	})

	t.Run("LatePaymentGoesToMerchantReview", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.02)

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(false, nil)
		m.rtx.EXPECT().AddPayment(ctx, gomock.Any()).Return(nil)
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().MarkTransferInvalid(ctx, inv.TransferID, gomock.Any()).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		// Full amount, but past the expiry window: never auto-accepted.
		late := btcinvoice.PaymentNotice{
			InputTxHash: "tx-aaa",
			Amount:      0.02,
			ReceivedAt:  inv.ExpiresAt.Add(time.Minute),
		}

		require.NoError(t, svc.RecordPayment(ctx, inv.ID, late))

		assert.Equal(t, btcinvoice.StateMerchantReview, inv.State)
		assert.InDelta(t, 0.02, inv.BalanceDue, 1e-12)
	})

	t.Run("ClosedInvoiceNeverReopens", func(t *testing.T) {
		// A new, in-window payment against an invoice a human already owns
		// is kept for the record but moves neither invoice nor transfer.
		for _, state := range []btcinvoice.State{
			btcinvoice.StateMerchantReview,
			btcinvoice.StateReadyToShip,
			btcinvoice.StateInvalid,
		} {
			t.Run(string(state), func(t *testing.T) {
				svc, m := newService(t, &fakeClient{})

				inv := unpaidInvoice(0.02)
				inv.State = state

				m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
				m.rtx.EXPECT().Invoice().Return(inv)
				m.rtx.EXPECT().HasPayment(ctx, "tx-aaa").Return(false, nil)
				m.rtx.EXPECT().AddPayment(ctx, gomock.Any()).Return(nil)
				m.rtx.EXPECT().Commit().Return(nil)
				m.rtx.EXPECT().Rollback().Return(nil)

				require.NoError(t, svc.RecordPayment(ctx, inv.ID, notice(0.02)))

				assert.Equal(t, state, inv.State)
				assert.InDelta(t, 0.02, inv.BalanceDue, 1e-12)
			})
		}
	})

	t.Run("UnknownInvoice", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		id := uuid.New()

		m.repo.EXPECT().BeginReconcile(ctx, id).Return(nil, btcinvoice.ErrNotFound)

		err := svc.RecordPayment(ctx, id, notice(0.02))
		assert.ErrorIs(t, err, btcinvoice.ErrNotFound)
	})
}

func TestServiceConfirmReadyToShip(t *testing.T) {
	ctx := context.Background()

	t.Run("AllConfirmed", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0)
		inv.State = btcinvoice.StatePaid

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().Payments(ctx).Return([]*btcinvoice.Payment{
			{InputTxHash: "tx-aaa", State: btcinvoice.PaymentConfirmed},
			{InputTxHash: "tx-bbb", State: btcinvoice.PaymentConfirmed},
		}, nil)
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.ConfirmReadyToShip(ctx, inv.ID))
		assert.Equal(t, btcinvoice.StateReadyToShip, inv.State)
	})

	t.Run("PendingPaymentBlocks", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0)
		inv.State = btcinvoice.StatePaid

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().Payments(ctx).Return([]*btcinvoice.Payment{
			{InputTxHash: "tx-aaa", State: btcinvoice.PaymentConfirmed},
			{InputTxHash: "tx-bbb", State: btcinvoice.PaymentPending},
		}, nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.ConfirmReadyToShip(ctx, inv.ID))
		assert.Equal(t, btcinvoice.StatePaid, inv.State)
	})

	t.Run("BalanceStillDue", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.01)
		inv.State = btcinvoice.StateUnderpaid

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.ConfirmReadyToShip(ctx, inv.ID))
		assert.Equal(t, btcinvoice.StateUnderpaid, inv.State)
	})

	t.Run("MerchantReviewStaysParked", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		// Overpaid before it was routed to review; still an operator call.
		inv := unpaidInvoice(-0.001)
		inv.State = btcinvoice.StateMerchantReview

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.ConfirmReadyToShip(ctx, inv.ID))
		assert.Equal(t, btcinvoice.StateMerchantReview, inv.State)
	})
}

func TestServiceInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("FromMerchantReview", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.02)
		inv.State = btcinvoice.StateMerchantReview

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().UpdateInvoice(ctx, inv).Return(nil)
		m.rtx.EXPECT().MarkTransferInvalid(ctx, inv.TransferID, gomock.Any()).Return(nil)
		m.rtx.EXPECT().Commit().Return(nil)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.Invalidate(ctx, inv.ID))
		assert.Equal(t, btcinvoice.StateInvalid, inv.State)
	})

	t.Run("SettledInvoiceRejected", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0)
		inv.State = btcinvoice.StatePaid

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().Rollback().Return(nil)

		err := svc.Invalidate(ctx, inv.ID)
		assert.ErrorIs(t, err, btcinvoice.ErrInvalidTransition)
		assert.Equal(t, btcinvoice.StatePaid, inv.State)
	})

	t.Run("AlreadyInvalid", func(t *testing.T) {
		svc, m := newService(t, &fakeClient{})

		inv := unpaidInvoice(0.02)
		inv.State = btcinvoice.StateInvalid

		m.repo.EXPECT().BeginReconcile(ctx, inv.ID).Return(m.rtx, nil)
		m.rtx.EXPECT().Invoice().Return(inv)
		m.rtx.EXPECT().Rollback().Return(nil)

		require.NoError(t, svc.Invalidate(ctx, inv.ID))
	})
}
