// Package rest exposes the engine over a thin HTTP surface. Handlers only
// bind and validate requests; all game logic lives in the game services.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lowfell/questworld/server/game/engineerr"
)

// writeError maps an engine error onto an HTTP response. Validation errors
// are the caller's fault, conflicts mean retry, everything else is a 500
// with the detail kept out of the body.
func writeError(c *gin.Context, err error) {
	kind, ok := engineerr.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
		return
	}
	code := engineerr.CodeOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case engineerr.KindValidation:
		status = http.StatusBadRequest
		if code == engineerr.CodeNotFound {
			status = http.StatusNotFound
		}
	case engineerr.KindConflict:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
