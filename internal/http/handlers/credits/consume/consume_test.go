package consume

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
)

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) Deduct(ctx context.Context, userUID, feature string) (credit.Result, error) {
	args := m.Called(ctx, userUID, feature)
	return args.Get(0).(credit.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestConsumeHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		userUID    string
		body       string
		feature    string
		result     credit.Result
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "allowed with default feature",
			userUID:    "uid-1",
			feature:    DefaultFeature,
			result:     credit.Result{Allowed: true, Remaining: 6},
			wantStatus: http.StatusOK,
			wantBody:   `{"allowed":true,"remaining":6,"isPremium":false}`,
		},
		{
			name:       "allowed with named feature",
			userUID:    "uid-1",
			body:       `{"feature":"hand-analysis"}`,
			feature:    "hand-analysis",
			result:     credit.Result{Allowed: true, Remaining: 0},
			wantStatus: http.StatusOK,
			wantBody:   `{"allowed":true,"remaining":0,"isPremium":false}`,
		},
		{
			name:       "premium",
			userUID:    "uid-1",
			feature:    DefaultFeature,
			result:     credit.Result{Allowed: true, Remaining: 2, Premium: true},
			wantStatus: http.StatusOK,
			wantBody:   `{"allowed":true,"remaining":2,"isPremium":true}`,
		},
		{
			name:       "no credits",
			userUID:    "uid-1",
			feature:    DefaultFeature,
			result:     credit.Result{Allowed: false, Remaining: 0},
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status":"Error","error":"no_credits","remaining":0}`,
		},
		{
			name:       "store timeout",
			userUID:    "uid-1",
			feature:    DefaultFeature,
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":"Error","error":"internal"}`,
		},
		{
			name:       "deleted user",
			userUID:    "uid-1",
			feature:    DefaultFeature,
			err:        models.ErrUserNotFound,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no user in context",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid json",
			userUID:    "uid-1",
			body:       `{"feature":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"Error","error":"invalid_request"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(LedgerMock)
			if tt.feature != "" {
				ledger.On("Deduct", mock.Anything, tt.userUID, tt.feature).Return(tt.result, tt.err).Once()
			}
			h := New(newNoopLogger(), ledger)

			req := httptest.NewRequest(http.MethodPost, "/credits/consume", bytes.NewBufferString(tt.body))
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			ledger.AssertExpectations(t)
		})
	}
}

func TestConsumeHandler_UnexpectedError(t *testing.T) {
	ledger := new(LedgerMock)
	ledger.On("Deduct", mock.Anything, "uid-1", DefaultFeature).Return(credit.Result{}, errors.New("boom")).Once()

	req := httptest.NewRequest(http.MethodPost, "/credits/consume", nil)
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
	rec := httptest.NewRecorder()
	New(newNoopLogger(), ledger).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
