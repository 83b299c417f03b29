package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"concertlog/api/internal/middleware"
	"concertlog/api/internal/service"
)

// multipartOverhead is the allowance for boundaries and part headers on top
// of the avatar byte limit.
const multipartOverhead = 64 << 10

func (h HandlerSet) UploadAvatar(c *gin.Context) {
	limit := h.cfg.Avatar.MaxBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	filename, data, err := readAvatarPart(c.Request, limit)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload an image"})
		return
	}

	err = h.userService.UploadAvatar(c.Request.Context(), middleware.CurrentUser(c), filename, data)
	if err != nil {
		var aerr *service.AvatarError
		if errors.As(err, &aerr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": aerr.Msg})
			return
		}
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// readAvatarPart streams the multipart body up to the "avatar" file part and
// reads at most limit+1 bytes of it. The filename is known before any of the
// file is read, so the service can reject the type ahead of the size.
func readAvatarPart(r *http.Request, limit int64) (string, []byte, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return "", nil, err
		}
		if part.FormName() != "avatar" || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		defer part.Close()

		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		if err != nil {
			return "", nil, err
		}
		return part.FileName(), data, nil
	}
}

// DeleteAvatar answers 400 when there was no avatar but still clears the
// field; a status already written is not replaced by the success status.
func (h HandlerSet) DeleteAvatar(c *gin.Context) {
	had, err := h.userService.RemoveAvatar(c.Request.Context(), middleware.CurrentUser(c))
	if !had {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No avatar associated with this user."})
	}
	if err != nil {
		if !c.Writer.Written() {
			h.writeError(c, err)
		}
		return
	}
	if !c.Writer.Written() {
		c.Status(http.StatusOK)
	}
}

func (h HandlerSet) GetAvatar(c *gin.Context) {
	data, err := h.userService.Avatar(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !errors.Is(err, service.ErrAvatarNotFound) {
			h.log.Error().Err(err).Msg("load avatar failed")
		}
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
