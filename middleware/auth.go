package middleware

import (
	"errors"
	"net/http"
	"strings"

	"medicine-marketplace/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const actorContextKey = "current_user"

// RequireRole parses the bearer token issued by the identity provider and
// gates the route on the given roles. The core trusts the claims beyond
// this check; pharmacy scoping happens in the queries themselves.
func RequireRole(secret []byte, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		actor := models.Actor{
			ID:       claimString(claims, "id"),
			Username: claimString(claims, "username"),
			Role:     claimString(claims, "role"),
		}
		if actor.ID == "" || actor.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Set(actorContextKey, actor)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

// GetActor returns the authenticated principal set by RequireRole.
func GetActor(c *gin.Context) (models.Actor, error) {
	if val, ok := c.Get(actorContextKey); ok {
		if actor, ok := val.(models.Actor); ok {
			return actor, nil
		}
	}
	return models.Actor{}, errors.New("actor not found in context")
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
