package paymentcreate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

type PaymentServiceMock struct {
	mock.Mock
}

func (m *PaymentServiceMock) Create(ctx context.Context, userUID string, amount int64) (*models.Payment, error) {
	args := m.Called(ctx, userUID, amount)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *PaymentServiceMock) Price() int64 {
	return 1990
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &models.Payment{
		ID:          "pay-1",
		UserUID:     "uid-1",
		Amount:      1990,
		Status:      models.PaymentPending,
		PaymentCode: "00020126",
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(30 * time.Minute),
	}

	tests := []struct {
		name       string
		userUID    string
		mockResp   *models.Payment
		mockErr    error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "created",
			userUID:    "uid-1",
			mockResp:   p,
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"pay-1","amount":1990,"paymentCode":"00020126","expiresIn":1800}`,
		},
		{
			name:       "unknown user",
			userUID:    "uid-1",
			mockErr:    models.ErrUserNotFound,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "storage error",
			userUID:    "uid-1",
			mockErr:    errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":"Error","error":"internal"}`,
		},
		{
			name:       "no user in context",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(PaymentServiceMock)
			if tt.userUID != "" {
				svc.On("Create", mock.Anything, tt.userUID, int64(1990)).Return(tt.mockResp, tt.mockErr).Once()
			}
			req := httptest.NewRequest(http.MethodPost, "/payments", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
