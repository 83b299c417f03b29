package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"concertlog/api/internal/middleware"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/validation"
)

// writeError maps validation and duplicate-email failures to 400 and
// everything else to an empty 500.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, validationBody(verr))
	case errors.Is(err, repository.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, validationBody(&validation.Error{
			Fields: []validation.FieldError{{Field: "email", Rule: "unique", Message: "Email is already registered"}},
		}))
	default:
		h.log.Error().Err(err).
			Str("route", c.FullPath()).
			Str("request_id", middleware.RequestIDFrom(c)).
			Msg("request failed")
		c.Status(http.StatusInternalServerError)
	}
}

func validationBody(err *validation.Error) gin.H {
	return gin.H{"error": "validation failed", "fields": err.Fields}
}

// readPatch reads a JSON object body and reports whether all of its keys are
// in allowed. An empty body is an empty patch.
func readPatch(c *gin.Context, allowed []string) ([]byte, bool, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return []byte("{}"), true, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, err
	}
	for key := range fields {
		if !slices.Contains(allowed, key) {
			return raw, false, nil
		}
	}
	return raw, true, nil
}
