package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/credit-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
)

// TokenParser проверяет подпись и срок действия токена.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// Deducter списывает кредит за использование функции.
type Deducter interface {
	Deduct(ctx context.Context, userUID, feature string) (credit.Result, error)
}
