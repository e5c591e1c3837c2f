package paymentlist

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-gate/internal/models"
)

type PaymentServiceMock struct {
	mock.Mock
}

func (m *PaymentServiceMock) ListMine(ctx context.Context, userUID string, limit int) ([]*models.Payment, error) {
	args := m.Called(ctx, userUID, limit)
	p, _ := args.Get(0).([]*models.Payment)
	return p, args.Error(1)
}

func TestListHandler_ServeHTTP(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	payments := []*models.Payment{
		{ID: "p2", Amount: 1990, Status: models.PaymentPending, CreatedAt: now},
		{ID: "p1", Amount: 1990, Status: models.PaymentExpired, CreatedAt: now.Add(-time.Hour)},
	}

	tests := []struct {
		name       string
		query      string
		wantLimit  int
		mockResp   []*models.Payment
		mockErr    error
		wantStatus int
		wantIDs    []string
	}{
		{name: "default limit", wantLimit: defaultLimit, mockResp: payments, wantStatus: http.StatusOK, wantIDs: []string{"p2", "p1"}},
		{name: "explicit limit", query: "?limit=1", wantLimit: 1, mockResp: payments[:1], wantStatus: http.StatusOK, wantIDs: []string{"p2"}},
		{name: "empty", wantLimit: defaultLimit, mockResp: nil, wantStatus: http.StatusOK, wantIDs: []string{}},
		{name: "limit too large", query: "?limit=1000", wantStatus: http.StatusBadRequest},
		{name: "limit not a number", query: "?limit=x", wantStatus: http.StatusBadRequest},
		{name: "storage error", wantLimit: defaultLimit, mockErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(PaymentServiceMock)
			if tt.wantLimit > 0 {
				svc.On("ListMine", mock.Anything, "uid-1", tt.wantLimit).Return(tt.mockResp, tt.mockErr).Once()
			}
			req := httptest.NewRequest(http.MethodGet, "/payments"+tt.query, nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.JSONEq(t, `{"status":"Error","error":"invalid_request"}`, rec.Body.String())
			}
			if tt.wantIDs != nil {
				var body struct {
					Status string `json:"status"`
					Data   []struct {
						ID string `json:"id"`
					} `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				ids := make([]string, 0, len(body.Data))
				for _, d := range body.Data {
					ids = append(ids, d.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
			}
			svc.AssertExpectations(t)
		})
	}
}
