package server

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amityadav/marketwatch/internal/core"
	"github.com/amityadav/marketwatch/internal/curation"
	"github.com/amityadav/marketwatch/internal/history"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/middleware"
	"github.com/amityadav/marketwatch/internal/query"
	"github.com/amityadav/marketwatch/internal/search"
)

// maxImportBytes caps uploaded CSV bodies.
const maxImportBytes = 10 << 20

type handlers struct {
	svc Services
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.svc.Sessions.Count()})
}

func (h *handlers) search(c *gin.Context) {
	var in core.SearchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	resp, err := h.svc.Dashboard.Search(c.Request.Context(), middleware.GetSession(c), in)
	switch {
	case errors.Is(err, query.ErrEmptyKeyword), errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.svc.Log.Error("Search failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) results(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetSession(c).LastResult())
}

func (h *handlers) listFolders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"folders": middleware.GetSession(c).Curation.Folders()})
}

type createFolderRequest struct {
	Name string `json:"name"`
}

func (h *handlers) createFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	persisted, ok := h.writeOutcome(c, middleware.GetSession(c).Curation.CreateFolder(c.Request.Context(), req.Name))
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, withPersistence(gin.H{"name": strings.TrimSpace(req.Name)}, persisted))
}

func (h *handlers) listFolder(c *gin.Context) {
	store := middleware.GetSession(c).Curation
	name := c.Param("name")
	if !store.HasFolder(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		return
	}
	records := store.List(name)
	c.JSON(http.StatusOK, gin.H{"folder": name, "count": len(records), "records": records})
}

type curateRequest struct {
	Links   []string              `json:"links"`
	Records []search.ResultRecord `json:"records"`
}

func (h *handlers) curate(c *gin.Context) {
	var req curateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Links) == 0 && len(req.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "links or records are required"})
		return
	}

	sess := middleware.GetSession(c)
	folder := c.Param("name")
	stored, persisted := 0, true
	if len(req.Links) > 0 {
		n, err := sess.CurateSelected(c.Request.Context(), req.Links, folder)
		p, ok := h.writeOutcome(c, err)
		if !ok {
			return
		}
		stored += n
		persisted = persisted && p
	}
	if len(req.Records) > 0 {
		n, err := sess.Curation.Curate(c.Request.Context(), req.Records, folder)
		p, ok := h.writeOutcome(c, err)
		if !ok {
			return
		}
		stored += n
		persisted = persisted && p
	}
	h.countCurated(req.Records, stored)
	c.JSON(http.StatusOK, withPersistence(gin.H{
		"folder": folder,
		"stored": stored,
		"count":  len(sess.Curation.List(folder)),
	}, persisted))
}

func (h *handlers) purge(c *gin.Context) {
	removed, err := middleware.GetSession(c).Curation.Purge(c.Request.Context(), c.Param("name"))
	persisted, ok := h.writeOutcome(c, err)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, withPersistence(gin.H{"folder": c.Param("name"), "removed": removed}, persisted))
}

type exporter struct {
	ext         string
	contentType string
	write       func(w io.Writer, folder string, records []search.ResultRecord) error
}

var exporters = map[string]exporter{
	"csv": {"csv", "text/csv; charset=utf-8", func(w io.Writer, _ string, r []search.ResultRecord) error {
		return curation.ExportCSV(w, r)
	}},
	"xlsx": {"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(w io.Writer, _ string, r []search.ResultRecord) error {
		return curation.ExportXLSX(w, r)
	}},
	"docx": {"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", curation.ExportDOCX},
}

func (h *handlers) export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	exp, ok := exporters[format]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv, xlsx or docx"})
		return
	}
	folder := c.Param("name")
	store := middleware.GetSession(c).Curation
	if !store.HasFolder(folder) {
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		return
	}

	var buf bytes.Buffer
	if err := exp.write(&buf, folder, store.List(folder)); err != nil {
		h.svc.Log.Error("Export failed", logger.String("format", format), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": curation.ExportFilename(folder, exp.ext),
	})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, exp.contentType, buf.Bytes())
}

func (h *handlers) importCSV(c *gin.Context) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart upload needs a file field"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		defer f.Close()
		body = f
	}

	records, err := curation.ImportCSV(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	folder := c.Param("name")
	store := middleware.GetSession(c).Curation
	n, err := store.Curate(c.Request.Context(), records, folder)
	persisted, ok := h.writeOutcome(c, err)
	if !ok {
		return
	}
	h.countCurated(records, n)
	c.JSON(http.StatusOK, withPersistence(gin.H{
		"folder": folder,
		"stored": n,
		"count":  len(store.List(folder)),
	}, persisted))
}

func (h *handlers) history(c *gin.Context) {
	view, err := h.svc.History.View(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) historyTrend(c *gin.Context) {
	counts, err := h.svc.History.DailyCounts(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": counts})
}

func (h *handlers) trends(c *gin.Context) {
	var in core.TrendsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(in.Keywords) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keywords are required"})
		return
	}
	report, err := h.svc.Dashboard.Trends(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "trends provider failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": h.svc.Dashboard.TrendsEnabled(), "report": report})
}

func (h *handlers) historyError(c *gin.Context, err error) {
	if errors.Is(err, history.ErrSourceUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "source unreachable: check the history CSV URL"})
		return
	}
	h.svc.Log.Error("History request failed", logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
}

// writeOutcome reports whether a curation write reached durable storage. ok is
// false when an error response has already been written.
func (h *handlers) writeOutcome(c *gin.Context, err error) (persisted, ok bool) {
	switch {
	case err == nil:
		return true, true
	case errors.Is(err, curation.ErrNotPersisted):
		h.svc.Log.Warn("Curation kept in session only", logger.Error(err))
		return false, true
	}
	h.curationError(c, err)
	return false, false
}

func withPersistence(body gin.H, persisted bool) gin.H {
	body["persisted"] = persisted
	if !persisted {
		body["warning"] = "saved for this session only; durable storage is unavailable"
	}
	return body
}

func (h *handlers) curationError(c *gin.Context, err error) {
	if errors.Is(err, curation.ErrEmptyFolder) || errors.Is(err, search.ErrInvalidRecord) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.svc.Log.Error("Curation write failed", logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save curation"})
}

func (h *handlers) countCurated(records []search.ResultRecord, stored int) {
	if h.svc.Metrics == nil || stored == 0 {
		return
	}
	if len(records) == 0 {
		h.svc.Metrics.CuratedRecords.WithLabelValues("selected").Add(float64(stored))
		return
	}
	for _, r := range search.Dedupe(records) {
		h.svc.Metrics.CuratedRecords.WithLabelValues(string(r.Type)).Inc()
	}
}
