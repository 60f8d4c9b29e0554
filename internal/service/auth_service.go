package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/auth"
	"github.com/spec-kit/service-desk/internal/config"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// AuthService signs in the desk operator.
type AuthService struct {
	operatorName string
	passwordHash string
	tokenMgr     *auth.TokenManager
	logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		operatorName: cfg.OperatorName,
		passwordHash: cfg.OperatorPasswordHash,
		tokenMgr:     tokens,
		logger:       logger,
	}
}

// Login checks the operator credentials and issues an access token.
func (s *AuthService) Login(_ context.Context, name, password string) (string, time.Time, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return "", time.Time{}, apperrors.NewValidationError("name and password are required", nil)
	}
	if s.passwordHash == "" {
		s.logger.Warn("login attempted but no operator password is configured")
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	nameOK := subtle.ConstantTimeCompare([]byte(name), []byte(s.operatorName)) == 1
	if err := auth.ComparePassword(s.passwordHash, password); err != nil || !nameOK {
		s.logger.Info("operator login rejected", zap.String("name", name))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(s.operatorName, auth.RoleOperator)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}
