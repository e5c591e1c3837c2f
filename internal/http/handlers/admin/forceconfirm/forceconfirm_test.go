package forceconfirm

import (
	"context"
	"encoding/json"
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
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

type PaymentServiceMock struct {
	mock.Mock
}

func (m *PaymentServiceMock) ForceConfirm(ctx context.Context, id string) (*payment.Confirmation, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*payment.Confirmation)
	return c, args.Error(1)
}

func TestForceConfirmHandler_ServeHTTP(t *testing.T) {
	until := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	confirmed := until.AddDate(0, 0, -30)

	tests := []struct {
		name       string
		mockResp   *payment.Confirmation
		mockErr    error
		wantStatus int
	}{
		{
			name: "confirmed",
			mockResp: &payment.Confirmation{
				Payment: &models.Payment{
					ID: "pay-1", UserUID: "u1", Amount: 1990,
					Status: models.PaymentCompleted, ConfirmedAt: &confirmed,
				},
				Transitioned: true,
				PremiumUntil: &until,
			},
			wantStatus: http.StatusOK,
		},
		{name: "not found", mockErr: models.ErrPaymentNotFound, wantStatus: http.StatusNotFound},
		{name: "storage error", mockErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(PaymentServiceMock)
			svc.On("ForceConfirm", mock.Anything, "pay-1").Return(tt.mockResp, tt.mockErr).Once()

			req := httptest.NewRequest(http.MethodPost, "/admin/payments/pay-1/force-confirm", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "pay-1")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var body Response
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.True(t, body.Transitioned)
				assert.Equal(t, "u1", body.Payment.UserUID)
				assert.Equal(t, models.PaymentCompleted, body.Payment.Status)
				require.NotNil(t, body.PremiumUntil)
				assert.True(t, until.Equal(*body.PremiumUntil))
			}
			svc.AssertExpectations(t)
		})
	}
}
