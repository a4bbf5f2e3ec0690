package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"teomarket/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey          contextKey = "user_id"
	UserRoleKey        contextKey = "user_role"
	CustomerGroupIDKey contextKey = "customer_group_id"
)

// SessionHeader carries the anonymous visitor's session id.
const SessionHeader = "X-Session-ID"

var (
	errMissingAuthHeader = errors.New("missing authorization header")
	errAuthHeaderFormat  = errors.New("invalid authorization header format")
	errInvalidClaims     = errors.New("invalid token claims")
)

type identity struct {
	userID  string
	role    string
	groupID *uuid.UUID
}

// AuthMiddleware validates JWT tokens and extracts user claims
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, jwtSecret)
			if err != nil {
				logger.Debug("Authentication failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, authErrorMessage(err))
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", id.userID),
				zap.String("role", id.role),
			)
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the caller's claims when a bearer token is sent and
// lets anonymous requests through. A token that is sent but invalid is
// still rejected.
func OptionalAuth(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := authenticate(r, jwtSecret)
			if err != nil {
				logger.Debug("Optional authentication failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, authErrorMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

func authenticate(r *http.Request, jwtSecret string) (identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return identity{}, errMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return identity{}, errAuthHeaderFormat
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return identity{}, err
	}
	if !token.Valid {
		return identity{}, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errInvalidClaims
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return identity{}, errInvalidClaims
	}
	role, ok := claims["role"].(string)
	if !ok {
		return identity{}, errInvalidClaims
	}

	id := identity{userID: userID, role: role}
	if raw, ok := claims["customer_group_id"].(string); ok && raw != "" {
		groupID, err := uuid.Parse(raw)
		if err != nil {
			return identity{}, errInvalidClaims
		}
		id.groupID = &groupID
	}
	return id, nil
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, errMissingAuthHeader), errors.Is(err, errAuthHeaderFormat), errors.Is(err, errInvalidClaims):
		return err.Error()
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}

func withIdentity(ctx context.Context, id identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.userID)
	ctx = context.WithValue(ctx, UserRoleKey, id.role)
	if id.groupID != nil {
		ctx = context.WithValue(ctx, CustomerGroupIDKey, *id.groupID)
	}
	return ctx
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// GetCustomerGroupID returns the pricing group from the token, or nil for
// anonymous callers and customers without a group.
func GetCustomerGroupID(ctx context.Context) *uuid.UUID {
	groupID, ok := ctx.Value(CustomerGroupIDKey).(uuid.UUID)
	if !ok {
		return nil
	}
	return &groupID
}

// IsAdmin reports whether the authenticated caller has the admin role.
func IsAdmin(ctx context.Context) bool {
	role, ok := GetUserRole(ctx)
	return ok && role == domain.RoleAdmin
}
