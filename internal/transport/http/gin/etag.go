package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// floorCacheControl is the shared policy for the floor-wide reads (table list,
// analytics overview): short-lived, safe for any intermediary to cache.
const floorCacheControl = "public, max-age=15"

// respondCached writes body as JSON under a weak content ETag so dashboard
// pollers revalidate cheaply. A matching If-None-Match returns 304 with no
// body.
func respondCached(c *gin.Context, body []byte) {
	sum := sha256.Sum256(body)
	tag := `W/"` + hex.EncodeToString(sum[:]) + `"`

	c.Header("ETag", tag)
	c.Header("Cache-Control", floorCacheControl)

	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
