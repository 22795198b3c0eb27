package tokenizer

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims are the standard claims carried by control surface tokens
type OperatorClaims struct {
	jwt.RegisteredClaims
}
