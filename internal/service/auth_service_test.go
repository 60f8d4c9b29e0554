package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/spec-kit/service-desk/internal/auth"
	"github.com/spec-kit/service-desk/internal/config"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

func TestOperatorLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	tokens := auth.NewTokenManager("jwt-secret", 15)
	svc := NewAuthService(config.AuthConfig{OperatorName: "desk", OperatorPasswordHash: hash}, tokens, nil)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "desk", "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	claims, err := tokens.ParseToken(token)
	if err != nil || claims.Subject != "desk" || claims.Role != auth.RoleOperator {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	_, _, err = svc.Login(ctx, "desk", "wrong")
	assertCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)

	_, _, err = svc.Login(ctx, "someone", "s3cret")
	assertCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)

	_, _, err = svc.Login(ctx, "", "")
	assertCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
}

func TestLoginWithoutConfiguredPassword(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{OperatorName: "desk"}, auth.NewTokenManager("x", 15), nil)
	_, _, err := svc.Login(context.Background(), "desk", "anything")
	assertCode(t, err, apperrors.CodeUnauthorized, http.StatusUnauthorized)
}
