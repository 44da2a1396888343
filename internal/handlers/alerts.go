package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irisdrone/bladealert/internal/models"
	"github.com/irisdrone/bladealert/internal/natsserver"
	"github.com/irisdrone/bladealert/internal/services"
)

const (
	defaultPerPage = 100
	maxPerPage     = 100
	maxImageSize   = 32 << 20
)

// API serves the alert endpoints
type API struct {
	Cache     *services.AlertCache
	Store     *services.FileStore
	Collector *services.Collector
	Cameras   *services.CameraIndex
	Hub       *services.AlertHub
	NATS      *natsserver.EmbeddedNATS
	Auth      *Auth
}

// GetAlerts handles GET /api/alerts - one page of the live cache
func (api *API) GetAlerts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	alerts, pagination := api.Cache.Page(page, perPage)
	stats := api.Cache.Stats()

	c.JSON(http.StatusOK, models.AlertPage{
		Status:     models.StatusSuccess,
		Alerts:     alerts,
		Pagination: pagination,
		Stats:      &stats,
	})
}

// PostAlert handles POST /api/alerts - alert pushed by an inspection worker.
// The alert travels as the alert_info form field of a multipart request,
// with an optional image file; a bare JSON body is accepted as well.
func (api *API) PostAlert(c *gin.Context) {
	var (
		alert models.Alert
		image []byte
	)

	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&alert); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Invalid alert JSON"})
			return
		}
	} else {
		info := c.PostForm("alert_info")
		if info == "" {
			info = "{}"
		}
		if err := json.Unmarshal([]byte(info), &alert); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Invalid alert_info JSON"})
			return
		}

		if fh, err := c.FormFile("image"); err == nil {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Failed to read image"})
				return
			}
			image, err = io.ReadAll(io.LimitReader(f, maxImageSize))
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Failed to read image"})
				return
			}
		}
	}

	if err := api.Collector.Ingest(c.Request.Context(), &alert, image); err != nil {
		log.Printf("⚠️ Failed to ingest alert: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidTime) || errors.Is(err, services.ErrInvalidPath) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"status": models.StatusError, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   models.StatusSuccess,
		"message":  "Alert received",
		"alert_id": alert.AlertID,
	})
}

// SearchAlerts handles GET /api/alerts/search - historical query
func (api *API) SearchAlerts(c *gin.Context) {
	params := models.SearchParams{
		StartTime:  c.Query("start_time"),
		EndTime:    c.Query("end_time"),
		CameraID:   c.Query("camera_id"),
		DefectName: c.Query("defect_name"),
		Page:       queryInt(c, "page", 1),
		PerPage:    queryInt(c, "per_page", defaultPerPage),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = defaultPerPage
	}
	if params.PerPage > maxPerPage {
		params.PerPage = maxPerPage
	}

	if !params.HasTimeRange() {
		empty := models.Pagination{Page: params.Page, PerPage: params.PerPage}
		c.JSON(http.StatusOK, models.AlertPage{
			Status:     models.StatusError,
			Message:    "Historical search requires start_time and end_time",
			Alerts:     []models.Alert{},
			Pagination: empty,
		})
		return
	}

	if raw := c.Query("min_confidence"); raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Invalid min_confidence"})
			return
		}
		params.MinConfidence = conf
	}

	if _, err := models.ParseTime(params.StartTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Invalid time format"})
		return
	}
	if _, err := models.ParseTime(params.EndTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": "Invalid time format"})
		return
	}

	page, err := api.search(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTime) || errors.Is(err, services.ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, gin.H{"status": models.StatusError, "message": err.Error()})
			return
		}
		log.Printf("⚠️ Alert search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": models.StatusError, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

// search prefers the database index and falls back to scanning files
func (api *API) search(ctx context.Context, params models.SearchParams) (*models.AlertPage, error) {
	if api.Collector != nil {
		if idx := api.Collector.Index(); idx != nil {
			page, err := idx.Search(ctx, params)
			if err == nil {
				return page, nil
			}
			log.Printf("⚠️ Index search failed, scanning files: %v", err)
		}
	}
	return api.Store.Search(ctx, params)
}

// GetCameras handles GET /api/cameras
func (api *API) GetCameras(c *gin.Context) {
	c.JSON(http.StatusOK, api.Cameras.List())
}

// GetImage handles GET /alerts/images/*filepath
func (api *API) GetImage(c *gin.Context) {
	path, err := api.Store.ImagePath(c.Param("filepath"))
	if err != nil {
		c.String(http.StatusForbidden, "invalid path")
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "image not found")
		return
	}
	c.File(path)
}

// Health handles GET /api/health
func (api *API) Health(c *gin.Context) {
	stats := api.Cache.Stats()
	body := gin.H{
		"status":              "healthy",
		"timestamp":           time.Now().Format(time.RFC3339),
		"cached_alerts_count": stats.TotalAlerts,
		"cached_alerts_limit": stats.CachedAlertsLimit,
		"resources":           services.HostResources(api.Store.Root()),
		"index":               api.Collector != nil && api.Collector.Index() != nil,
		"auth":                api.Auth.Enabled(),
	}
	if api.Collector != nil {
		if counter, ok := api.Collector.Index().(interface {
			Count(ctx context.Context) (int64, error)
		}); ok {
			if n, err := counter.Count(c.Request.Context()); err == nil {
				body["total_alerts_persisted"] = n
			}
		}
	}
	if api.NATS != nil {
		body["nats"] = api.NATS.GetStats()
	}
	if api.Hub != nil {
		body["hub"] = api.Hub.Stats()
	}
	c.JSON(http.StatusOK, body)
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
