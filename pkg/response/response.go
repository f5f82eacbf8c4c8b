package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

// Envelope is the body of every JSON response: data on success, error otherwise.
// Meta carries request-scoped extras such as cache_hit, run_id and count.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *appErrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// listEnvelope keeps "data" present for empty lists.
type listEnvelope struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

// JSON writes data with the given status. Meta maps are merged left to right.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Data: data, Meta: mergeMeta(meta)})
}

// OK is JSON with 200.
func OK(c *gin.Context, data interface{}, meta ...map[string]interface{}) {
	JSON(c, http.StatusOK, data, meta...)
}

// List writes a collection and its size under meta.count.
func List(c *gin.Context, items interface{}, count int, meta ...map[string]interface{}) {
	merged := mergeMeta(meta)
	if merged == nil {
		merged = map[string]interface{}{}
	}
	merged["count"] = count
	noStore(c)
	c.JSON(http.StatusOK, listEnvelope{Data: items, Meta: merged})
}

// Created responds with 201.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error maps err onto its application error and status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

func mergeMeta(parts []map[string]interface{}) map[string]interface{} {
	var merged map[string]interface{}
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		if merged == nil {
			merged = make(map[string]interface{}, len(part))
		}
		for k, v := range part {
			merged[k] = v
		}
	}
	return merged
}
