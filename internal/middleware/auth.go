package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSecret = []byte(os.Getenv("JWT_SECRET"))

func userIDFromRequest(c *gin.Context) (uuid.UUID, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil, fmt.Errorf("missing bearer token")
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing user_id claim")
	}
	return uuid.Parse(raw)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// authenticated user id in the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := userIDFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalAuth stores the user id when a valid token is present but lets
// anonymous requests through. Used by reads that personalize their response.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := userIDFromRequest(c); err == nil {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
