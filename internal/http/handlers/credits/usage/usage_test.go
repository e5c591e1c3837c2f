package usage

import (
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
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
)

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) Peek(ctx context.Context, userUID string) (credit.Result, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(credit.Result), args.Error(1)
}

func TestUsageHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		result     credit.Result
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "free with credits",
			result:     credit.Result{Allowed: true, Remaining: 4},
			wantStatus: http.StatusOK,
			wantBody:   `{"isPremium":false,"freeCredits":4,"freeCreditsLimit":7,"blocked":false}`,
		},
		{
			name:       "free exhausted",
			result:     credit.Result{Allowed: false, Remaining: 0},
			wantStatus: http.StatusOK,
			wantBody:   `{"isPremium":false,"freeCredits":0,"freeCreditsLimit":7,"blocked":true}`,
		},
		{
			name:       "premium",
			result:     credit.Result{Allowed: true, Remaining: 0, Premium: true},
			wantStatus: http.StatusOK,
			wantBody:   `{"isPremium":true,"freeCredits":0,"freeCreditsLimit":7,"blocked":false}`,
		},
		{
			name:       "store error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(LedgerMock)
			ledger.On("Peek", mock.Anything, "uid-1").Return(tt.result, tt.err).Once()
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), ledger, 7)

			req := httptest.NewRequest(http.MethodGet, "/usage/status", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
