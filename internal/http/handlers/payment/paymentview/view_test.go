package paymentview

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

func TestFromModel_HidesCodeOnceTerminal(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &models.Payment{
		ID:          "p1",
		UserUID:     "u1",
		Amount:      1990,
		Status:      models.PaymentPending,
		PaymentCode: "000201...",
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
	}
	assert.Equal(t, "000201...", FromModel(p).PaymentCode)

	p.Status = models.PaymentCompleted
	p.ConfirmedAt = &now
	v := FromModel(p)
	assert.Empty(t, v.PaymentCode)
	assert.Equal(t, &now, v.ConfirmedAt)

	admin := AdminList([]*models.Payment{p})
	assert.Equal(t, "u1", admin[0].UserUID)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{fmt.Errorf("op: %w", models.ErrPaymentNotFound), http.StatusNotFound, "not_found"},
		{models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{models.ErrUserNotFound, http.StatusUnauthorized, "unauthorized"},
		{payment.ErrInvalidStatus, http.StatusBadRequest, "invalid_request"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, reason := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.reason, reason, tt.err.Error())
	}
}
