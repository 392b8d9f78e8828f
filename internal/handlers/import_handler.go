package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

type ImportHandler struct {
	svc      *service.ImportService
	maxBytes int64
}

func NewImportHandler(svc *service.ImportService, maxBytes int64) *ImportHandler {
	return &ImportHandler{svc: svc, maxBytes: maxBytes}
}

// upload opens the multipart "file" field. The caller closes the returned
// closer.
func (h *ImportHandler) upload(c *gin.Context) (service.Upload, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, nil, apperror.New(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("File exceeds %d bytes", h.maxBytes))
		}
		return service.Upload{}, nil, apperror.BadRequest("FILE_REQUIRED", "A file must be uploaded in the \"file\" field")
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, apperror.BadRequest("INVALID_FILE", err.Error())
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func parseMode(s string) (models.ImportMode, error) {
	if s == "" {
		return models.ImportFlexible, nil
	}
	m := models.ImportMode(s)
	if !m.Valid() {
		return "", apperror.Validation("mode must be strict or flexible", map[string]string{"mode": s})
	}
	return m, nil
}

func (h *ImportHandler) Analyze(c *gin.Context) {
	u, closeFile, err := h.upload(c)
	if err != nil {
		fail(c, err)
		return
	}
	defer closeFile()

	mode, err := parseMode(c.PostForm("mode"))
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.svc.Analyze(c.Request.Context(), u, mode)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (h *ImportHandler) Import(c *gin.Context) {
	u, closeFile, err := h.upload(c)
	if err != nil {
		fail(c, err)
		return
	}
	defer closeFile()

	opts := models.DefaultImportOptions()
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			fail(c, apperror.BadRequest("INVALID_OPTIONS", "options must be a JSON object"))
			return
		}
	}
	if opts.Mode, err = parseMode(string(opts.Mode)); err != nil {
		fail(c, err)
		return
	}

	res, err := h.svc.Import(c.Request.Context(), actorFrom(c), u, opts)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

type validateRequest struct {
	Rows []map[string]interface{} `json:"rows" binding:"required,min=1"`
	Mode string                   `json:"mode" binding:"omitempty,import_mode"`
}

func (h *ImportHandler) Validate(c *gin.Context) {
	var req validateRequest
	if !bindJSON(c, &req) {
		return
	}
	mode, _ := parseMode(req.Mode)
	res, err := h.svc.Validate(c.Request.Context(), req.Rows, mode)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (h *ImportHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, p, err := h.svc.History(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	list(c, items, p)
}
