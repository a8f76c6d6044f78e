package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"tradedesk/globals"
	"tradedesk/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware decorates a route handler.
type Middleware func(httprouter.Handle) httprouter.Handle

// Chain composes middlewares so the first one listed runs first.
func Chain(mws ...Middleware) Middleware {
	return func(h httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

func parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return globals.JwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID == "" || claims.CompanyID == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}
	return claims, nil
}

// IssueToken signs a token for the given subject. Used by the seed tool and tests.
func IssueToken(userID, companyID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
}

func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var raw string
		if websocket.IsWebSocketUpgrade(r) {
			// browsers cannot set headers on the upgrade request
			raw = r.URL.Query().Get("token")
		} else {
			header := r.Header.Get("Authorization")
			if header == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
				return
			}
			if !strings.HasPrefix(header, "Bearer ") || len(header) < 8 {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
				return
			}
			raw = header[7:]
		}

		claims, err := parseToken(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, globals.CompanyIDKey, claims.CompanyID)
		ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...string) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if !slices.Contains(roles, utils.GetRoleFromRequest(r)) {
				utils.RespondWithError(w, http.StatusForbidden, "forbidden")
				return
			}
			next(w, r, ps)
		}
	}
}
