package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"concertlog/api/internal/models"
	"concertlog/api/internal/service"
)

const (
	CurrentUserKey = "current_user"
	AccessTokenKey = "access_token"
)

// Authenticator is implemented by service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

func Auth(auth Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please authenticate."})
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		user, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthenticated) {
				log.Error().Err(err).Str("request_id", RequestIDFrom(c)).Msg("authenticate failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please authenticate."})
			return
		}

		c.Set(AccessTokenKey, tokenStr)
		c.Set(CurrentUserKey, user)

		c.Next()
	}
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) models.User {
	user, _ := c.MustGet(CurrentUserKey).(models.User)
	return user
}

func AccessToken(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}
