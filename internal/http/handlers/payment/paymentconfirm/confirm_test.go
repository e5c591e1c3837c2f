package paymentconfirm

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

type PaymentServiceMock struct {
	mock.Mock
}

func (m *PaymentServiceMock) ConfirmOwned(ctx context.Context, userUID, id string) (*payment.Confirmation, error) {
	args := m.Called(ctx, userUID, id)
	c, _ := args.Get(0).(*payment.Confirmation)
	return c, args.Error(1)
}

func TestConfirmHandler_ServeHTTP(t *testing.T) {
	until := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		mockResp   *payment.Confirmation
		mockErr    error
		wantStatus int
		wantBody   string
	}{
		{
			name: "completed",
			mockResp: &payment.Confirmation{
				Payment:      &models.Payment{ID: "pay-1", Status: models.PaymentCompleted},
				Transitioned: true,
				PremiumUntil: &until,
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"pay-1","status":"completed","premiumUntil":"2026-03-31T10:00:00Z"}`,
		},
		{
			name: "already expired",
			mockResp: &payment.Confirmation{
				Payment: &models.Payment{ID: "pay-1", Status: models.PaymentExpired},
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"pay-1","status":"expired"}`,
		},
		{
			name:       "not found",
			mockErr:    fmt.Errorf("payment.Confirm: %w", models.ErrPaymentNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"status":"Error","error":"not_found"}`,
		},
		{
			name:       "other user's payment",
			mockErr:    models.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status":"Error","error":"forbidden"}`,
		},
		{
			name:       "storage error",
			mockErr:    errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(PaymentServiceMock)
			svc.On("ConfirmOwned", mock.Anything, "uid-1", "pay-1").Return(tt.mockResp, tt.mockErr).Once()
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodPost, "/payments/pay-1/confirm", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "pay-1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "uid-1")
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
