package api

import (
	"errors"
	"net/http"
	"unsafe"

	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const userContextKey = "kanban.user"

var bearerPrefix = [...]byte{'B', 'e', 'a', 'r', 'e', 'r', ' '}

// requireUser resolves the caller before the handler runs. EventSource
// clients cannot set headers, so a token query parameter is accepted as a
// bearer token.
func requireUser(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				if token := c.QueryParam("token"); token != "" {
					header = "Bearer " + token
				}
			}
			userID, err := auth.UserIDFromAuthHeader(header)
			if err != nil {
				if m := metricsFrom(c); m != nil {
					m.SetErrorStage("auth")
				}
				return c.String(http.StatusUnauthorized, err.Error())
			}
			c.Set(userContextKey, userID)
			return next(c)
		}
	}
}

func userFrom(c echo.Context) string {
	if id, ok := c.Get(userContextKey).(string); ok {
		return id
	}
	return AnonymousUser
}

func bearerTokenFromString(raw string) ([]byte, error) {
	start := 0
	end := len(raw)
	for start < end && raw[start] == ' ' {
		start++
	}
	for end > start && raw[end-1] == ' ' {
		end--
	}
	if start >= end {
		return nil, errMissingAuthorization
	}
	tokenBytes := readOnlyBytes(raw[start:end])
	if len(tokenBytes) <= len(bearerPrefix) || !hasBearerPrefix(tokenBytes) {
		return nil, errBadAuthorization
	}
	tokenBytes = tokenBytes[len(bearerPrefix):]
	if countByte(tokenBytes, '.') != 2 {
		return nil, errBadAuthorization
	}
	return tokenBytes, nil
}

func hasBearerPrefix(value []byte) bool {
	for i := range bearerPrefix {
		if value[i] != bearerPrefix[i] {
			return false
		}
	}
	return true
}

func countByte(buf []byte, target byte) int {
	count := 0
	for _, b := range buf {
		if b == target {
			count++
		}
	}
	return count
}

// readOnlyBytes and readOnlyString share memory with their input; callers
// must not modify the result.
func readOnlyBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func readOnlyString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
