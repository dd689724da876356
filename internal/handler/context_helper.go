package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/scportal/search-api/internal/middleware"
	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

type userLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUser loads the account behind the request's token. Anonymous
// requests yield a nil user and no error.
func currentUser(c *gin.Context, users userLoader) (*models.User, error) {
	claims := claimsFromContext(c)
	if claims == nil || users == nil {
		return nil, nil
	}
	user, err := users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, err
	}
	return user, nil
}
