package access

import (
	"maps"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	contextKeyAuditResource = "audit_resource_id"
	contextKeyAuditDetails  = "audit_details"
)

// Audited wraps the rest of the handler chain and records an audit entry for
// the caller when the response status is below 400. The resource id is taken
// from SetAuditResource, falling back to the :id path parameter.
func Audited(rec *Recorder, action, resourceKind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		p, ok := PrincipalFrom(c)
		if !ok {
			return
		}

		resourceID := c.Param("id")
		if v, ok := c.Get(contextKeyAuditResource); ok {
			if id, ok := v.(string); ok {
				resourceID = id
			}
		}
		var details map[string]any
		if v, ok := c.Get(contextKeyAuditDetails); ok {
			details, _ = v.(map[string]any)
		}

		rec.RecordAudit(*p, action, resourceKind, resourceID, details, Origin{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	}
}

// SetAuditResource names the resource the current request acted on.
func SetAuditResource(c *gin.Context, id string) {
	c.Set(contextKeyAuditResource, id)
}

// AddAuditDetails merges details into the entry recorded for the current request.
func AddAuditDetails(c *gin.Context, details map[string]any) {
	merged := make(map[string]any, len(details))
	if v, ok := c.Get(contextKeyAuditDetails); ok {
		if existing, ok := v.(map[string]any); ok {
			maps.Copy(merged, existing)
		}
	}
	maps.Copy(merged, details)
	c.Set(contextKeyAuditDetails, merged)
}
