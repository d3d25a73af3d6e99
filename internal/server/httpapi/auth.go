package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/auth"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

// requireOwner accepts requests whose bearer token names the principal in the
// :user_id path parameter.
func requireOwner(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "Missing or invalid Authorization header"})
			return
		}

		p, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: msg})
			return
		}

		if p.UserID != c.Param("user_id") {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "Forbidden"})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}
