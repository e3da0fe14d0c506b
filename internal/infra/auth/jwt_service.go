package auth

import (
	"strconv"
	"time"

	"chat/config"
	domainerrors "chat/internal/domain/errors"
	"chat/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const tokenIssuer = "chatd"

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService is the constructor for jwtService.
// An empty auth.tokenSecret yields a disabled service.
func NewJWTService(cfg *config.Config) service.TokenService {
	return &jwtService{
		secret: []byte(cfg.Auth.TokenSecret),
		ttl:    cfg.Auth.TokenTTL,
		now:    time.Now,
	}
}

// Enabled reports whether a signing secret is configured.
func (s *jwtService) Enabled() bool {
	return len(s.secret) > 0
}

// Generate creates a signed HS256 token for the user.
func (s *jwtService) Generate(userID int64, username string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := s.now()
	claims := &service.Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return signed, nil
}

// Validate checks signature, issuer and expiry and returns the claims.
func (s *jwtService) Validate(tokenString string) (*service.Claims, error) {
	if !s.Enabled() {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("tokens are disabled")
	}

	claims := &service.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidToken, err.Error())
	}
	if claims.UserID == 0 || claims.Username == "" {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("token is missing identity claims")
	}

	return claims, nil
}

// TTL returns the configured token lifetime.
func (s *jwtService) TTL() time.Duration {
	return s.ttl
}
