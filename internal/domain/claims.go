package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims identifica o operador que chama a API de anomalias
type Claims struct {
	OperatorID   string `json:"operator_id"`
	OperatorName string `json:"operator_name"`
	RoleID       int    `json:"role_id"`
	jwt.RegisteredClaims
}
