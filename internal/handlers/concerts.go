package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"concertlog/api/internal/middleware"
	"concertlog/api/internal/models"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/service"
)

func (h HandlerSet) CreateConcert(c *gin.Context) {
	var in service.ConcertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	concert, err := h.concertService.Create(c.Request.Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, concert)
}

// ListConcerts supports ?venue=, ?sortBy=field:asc|desc, ?limit= and ?skip=.
func (h HandlerSet) ListConcerts(c *gin.Context) {
	q := models.ConcertQuery{
		Venue: c.Query("venue"),
		Limit: queryInt(c, "limit"),
		Skip:  queryInt(c, "skip"),
	}
	q.ParseSort(c.Query("sortBy"))

	concerts, err := h.concertService.List(c.Request.Context(), middleware.CurrentUser(c).ID, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, concerts)
}

func queryInt(c *gin.Context, key string) int64 {
	n, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (h HandlerSet) GetConcert(c *gin.Context) {
	concert, err := h.concertService.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		h.concertError(c, err)
		return
	}
	c.JSON(http.StatusOK, concert)
}

func (h HandlerSet) UpdateConcert(c *gin.Context) {
	raw, ok, err := readPatch(c, service.ConcertUpdatableFields)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid updates!"})
		return
	}

	var in service.ConcertInput
	if err := json.Unmarshal(raw, &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	concert, err := h.concertService.Update(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID, in)
	if err != nil {
		h.concertError(c, err)
		return
	}
	c.JSON(http.StatusOK, concert)
}

func (h HandlerSet) DeleteConcert(c *gin.Context) {
	concert, err := h.concertService.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		h.concertError(c, err)
		return
	}
	c.JSON(http.StatusOK, concert)
}

func (h HandlerSet) concertError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrConcertNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	h.writeError(c, err)
}
