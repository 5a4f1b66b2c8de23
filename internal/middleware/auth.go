package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"backend/internal/model"
	"backend/pkg/response"
)

const principalKey = "principal"

// RequireAuth validates the JWT and resolves the acting principal. The core
// trusts the resulting {identity, role} pair completely; all finer-grained
// authorization happens in the policy layer.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		identity, _ := claims["identity"].(string)
		role, _ := claims["role"].(string)
		if identity == "" || !model.Role(role).Valid() {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Principal not resolvable from token"))
			return
		}

		c.Set(principalKey, model.Principal{Identity: identity, Role: model.Role(role)})
		c.Next()
	}
}

// Principal returns the principal resolved by RequireAuth.
func Principal(c *gin.Context) model.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(model.Principal)
	return principal
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	// Fallback to cookie for browser clients
	token, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return token
}
