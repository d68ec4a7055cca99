package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

// caller returns the principal set by the access gate. Routes without a gate
// never reach handlers that call it, so a miss is answered as unauthenticated.
func caller(c *gin.Context) (*access.Principal, bool) {
	p, ok := access.PrincipalFrom(c)
	if !ok {
		response.Error(c, access.ErrTokenMissing)
		return nil, false
	}
	return p, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
