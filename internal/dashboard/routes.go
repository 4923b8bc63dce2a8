package dashboard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers, opts ServerOpts) {
	router.GET("/healthz", handleHealth)
	router.GET("/metrics", metricsHandler(opts.Gatherer))

	api := router.Group("/api", requireToken(opts.JWTSecret))
	api.GET("/leads", h.listLeads)
	api.GET("/leads/:id", h.getLead)
	api.POST("/leads/:id/contacted", h.contactLead)
	api.POST("/leads/:id/archive", h.archiveLead)
	api.GET("/stats", h.stats)
	api.GET("/export", h.export)
	api.GET("/stream", handleStream(opts.Store, opts.Location, opts.StreamInterval))
}

type handlers struct {
	store  lead.Store
	events events.Publisher
	loc    *time.Location
	log    *logrus.Logger
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listLeads returns active leads, newest first.
func (h *handlers) listLeads(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	leads, err := h.store.ListActive(c.Request.Context(), limit, true)
	if err != nil {
		h.fail(c, "list leads", err)
		return
	}
	views := make([]leadView, 0, len(leads))
	for i := range leads {
		views = append(views, toLeadView(&leads[i], h.loc))
	}
	c.JSON(http.StatusOK, gin.H{"leads": views, "count": len(views)})
}

func (h *handlers) getLead(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	l, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get lead", err)
		return
	}
	c.JSON(http.StatusOK, toLeadView(l, h.loc))
}

func (h *handlers) contactLead(c *gin.Context) {
	h.act(c, "contact lead", lead.ContactLead)
}

func (h *handlers) archiveLead(c *gin.Context) {
	h.act(c, "archive lead", lead.ArchiveLead)
}

type leadAction func(ctx context.Context, s lead.Store, pub events.Publisher, id uint) (*models.Lead, error)

func (h *handlers) act(c *gin.Context, op string, action leadAction) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	l, err := action(c.Request.Context(), h.store, h.events, id)
	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, toLeadView(l, h.loc))
}

func (h *handlers) stats(c *gin.Context) {
	st, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// export streams every lead, archived included, as CSV.
func (h *handlers) export(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := lead.ExportCSV(c.Request.Context(), h.store, &buf, h.loc); err != nil {
		h.fail(c, "export", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="leads.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// leadID parses the :id path parameter, answering 400 when it is malformed.
func leadID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		badRequest(c, "lead id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps store errors to responses. Anything other than a missing lead
// is logged and hidden behind a 500.
func (h *handlers) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, lead.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	h.log.WithError(err).WithField("op", op).Error("dashboard: request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
