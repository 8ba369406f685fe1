package webhook_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/kwabenaio/sika/internal/btcinvoice"
	"github.com/kwabenaio/sika/internal/http/webhook"
	"github.com/kwabenaio/sika/internal/processor"
	"github.com/kwabenaio/sika/internal/transfer"
)

type fakeClient struct {
	verifyErr error
	callback  *processor.Callback
	parseErr  error
}

func (f *fakeClient) CreateInvoice(context.Context, processor.InvoiceRequest) (*processor.InvoiceResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) VerifyCallback(*http.Request, []byte) error { return f.verifyErr }

func (f *fakeClient) ParseCallback([]byte) (*processor.Callback, error) {
	return f.callback, f.parseErr
}

func post(t *testing.T, h *webhook.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Route("/callbacks", h.Routes)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestReceiveAlwaysAcknowledges(t *testing.T) {
	ctrl := gomock.NewController(t)

	newInvoiceService := func(repo btcinvoice.Repository) *btcinvoice.Service {
		return btcinvoice.NewService(
			repo,
			processor.NewService(nil),
			btcinvoice.NewMockPricing(ctrl),
			btcinvoice.NewMockTransfers(ctrl),
			transfer.NewMockNotifier(ctrl),
			"https://api.sika.example/callbacks",
			15*time.Minute,
		)
	}

	t.Run("UnknownProcessor", func(t *testing.T) {
		h := webhook.NewHandler(processor.NewService(nil), newInvoiceService(btcinvoice.NewMockRepository(ctrl)))

		rec := post(t, h, "/callbacks/bitpay")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("FailedVerification", func(t *testing.T) {
		processors := processor.NewService(map[processor.Kind]processor.Client{
			processor.KindGoCoin: &fakeClient{verifyErr: errors.New("bad signature")},
		})

		h := webhook.NewHandler(processors, newInvoiceService(btcinvoice.NewMockRepository(ctrl)))

		rec := post(t, h, "/callbacks/gocoin")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("UnknownInvoice", func(t *testing.T) {
		processors := processor.NewService(map[processor.Kind]processor.Client{
			processor.KindGoCoin: &fakeClient{callback: &processor.Callback{InvoiceID: "gc-404"}},
		})

		repo := btcinvoice.NewMockRepository(ctrl)
		repo.EXPECT().
			GetByExternalID(gomock.Any(), processor.KindGoCoin, "gc-404").
			Return(nil, btcinvoice.ErrNotFound)

		h := webhook.NewHandler(processors, newInvoiceService(repo))

		rec := post(t, h, "/callbacks/gocoin")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RecordFailureStillAcknowledged", func(t *testing.T) {
		inv := &btcinvoice.Invoice{InvoiceID: "gc-1001"}

		processors := processor.NewService(map[processor.Kind]processor.Client{
			processor.KindGoCoin: &fakeClient{callback: &processor.Callback{InvoiceID: "gc-1001"}},
		})

		repo := btcinvoice.NewMockRepository(ctrl)
		repo.EXPECT().
			GetByExternalID(gomock.Any(), processor.KindGoCoin, "gc-1001").
			Return(inv, nil)
		repo.EXPECT().
			BeginReconcile(gomock.Any(), inv.ID).
			Return(nil, errors.New("deadlock"))

		h := webhook.NewHandler(processors, newInvoiceService(repo))

		rec := post(t, h, "/callbacks/gocoin")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
