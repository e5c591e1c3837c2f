package paymentstatus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

type PaymentServiceMock struct {
	mock.Mock
}

func (m *PaymentServiceMock) Status(ctx context.Context, userUID, id string) (*models.Payment, error) {
	args := m.Called(ctx, userUID, id)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func TestStatusHandler_ServeHTTP(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	confirmedAt := createdAt.Add(time.Minute)

	tests := []struct {
		name       string
		mockResp   *models.Payment
		mockErr    error
		wantStatus int
		wantBody   string
	}{
		{
			name: "pending",
			mockResp: &models.Payment{
				ID: "pay-1", Amount: 1990, Status: models.PaymentPending, PaymentCode: "0002",
				CreatedAt: createdAt, ExpiresAt: createdAt.Add(30 * time.Minute),
			},
			wantStatus: http.StatusOK,
			wantBody: `{"id":"pay-1","status":"pending","amount":1990,"paymentCode":"0002",` +
				`"createdAt":"2026-03-01T10:00:00Z","expiresAt":"2026-03-01T10:30:00Z"}`,
		},
		{
			name: "completed",
			mockResp: &models.Payment{
				ID: "pay-1", Amount: 1990, Status: models.PaymentCompleted, PaymentCode: "0002",
				CreatedAt: createdAt, ExpiresAt: createdAt.Add(30 * time.Minute), ConfirmedAt: &confirmedAt,
			},
			wantStatus: http.StatusOK,
			wantBody: `{"id":"pay-1","status":"completed","amount":1990,` +
				`"createdAt":"2026-03-01T10:00:00Z","expiresAt":"2026-03-01T10:30:00Z",` +
				`"confirmedAt":"2026-03-01T10:01:00Z"}`,
		},
		{name: "not found", mockErr: models.ErrPaymentNotFound, wantStatus: http.StatusNotFound},
		{name: "forbidden", mockErr: models.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "storage error", mockErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(PaymentServiceMock)
			svc.On("Status", mock.Anything, "uid-1", "pay-1").Return(tt.mockResp, tt.mockErr).Once()

			req := httptest.NewRequest(http.MethodGet, "/payments/pay-1", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "pay-1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(context.WithValue(ctx, middlewarectx.UserUID, "uid-1"))

			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
