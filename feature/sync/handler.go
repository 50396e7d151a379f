package sync

import (
	"diary-sync/core/apperror"
	"diary-sync/core/logger"
	"diary-sync/core/reconcile"
	"diary-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for synchronization.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = reconcile.Report{}
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleSyncAll)
	group.Get("/remote", h.HandleRemoteDates)
	group.Post("/:date", h.HandleSyncDate)
	group.Post("/:date/export", h.HandleExport)
}

// options applies query overrides to the configured defaults.
func (h *Handler) options(c *fiber.Ctx) reconcile.Options {
	opts := h.service.DefaultOptions()
	if v := c.Query("supersede"); v != "" {
		opts.Supersede = utils.ToBool(v)
	}
	if v := c.Query("export"); v != "" {
		opts.Export = utils.ToBool(v)
	}
	opts.DryRun = utils.ToBool(c.Query("dry_run"))
	return opts
}

// HandleSyncAll runs a full sync.
// @Summary Sync All Dates
// @Description Merges quick notes, then reconciles every date known locally or remotely. Per-date failures are reported in the results and never abort the run.
// @Tags sync
// @Produce json
// @Param supersede query boolean false "Replace unresolved episodes"
// @Param export query boolean false "Upload local-only entries"
// @Param dry_run query boolean false "Report without writing"
// @Success 200 {object} RunResult
// @Failure 409 {object} map[string]string "A full sync is already running"
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /sync [post]
func (h *Handler) HandleSyncAll(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	opts := h.options(c)
	l.Info("Triggering full sync", zap.Bool("supersede", opts.Supersede), zap.Bool("export", opts.Export), zap.Bool("dry_run", opts.DryRun))

	res, err := h.service.SyncAll(c.Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// HandleSyncDate syncs one date.
// @Summary Sync One Date
// @Description Pending and failed outcomes are returned with the status of their error kind.
// @Tags sync
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param supersede query boolean false "Replace an unresolved episode"
// @Param export query boolean false "Upload when the remote lacks the date"
// @Param dry_run query boolean false "Report without writing"
// @Success 200 {object} reconcile.DateResult
// @Failure 409 {object} reconcile.DateResult "Unresolved episode pending"
// @Failure 502 {object} reconcile.DateResult "Remote unavailable"
// @Router /sync/{date} [post]
func (h *Handler) HandleSyncDate(c *fiber.Ctx) error {
	d, err := utils.ParseDate(c.Params("date"))
	if err != nil {
		return apperror.Invalid("sync", err.Error())
	}
	res := h.service.SyncDate(c.Context(), d, h.options(c))
	if res.Err != nil {
		return c.Status(apperror.Status(res.Err)).JSON(res)
	}
	return c.JSON(res)
}

// HandleExport pushes one entry to the remote.
// @Summary Export One Date
// @Tags sync
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} map[string]string "Exported"
// @Failure 400 {object} map[string]string "Remote is read-only"
// @Failure 404 {object} map[string]string "No entry"
// @Failure 502 {object} map[string]string "Remote unavailable"
// @Router /sync/{date}/export [post]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	d, err := utils.ParseDate(c.Params("date"))
	if err != nil {
		return apperror.Invalid("export", err.Error())
	}
	if err := h.service.Export(c.Context(), d); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"exported": utils.FormatDate(d)})
}

// HandleRemoteDates lists the dates the remote holds.
// @Summary List Remote Dates
// @Tags sync
// @Produce json
// @Success 200 {object} map[string][]string "Dates, newest first"
// @Failure 502 {object} map[string]string "Remote unavailable"
// @Router /sync/remote [get]
func (h *Handler) HandleRemoteDates(c *fiber.Ctx) error {
	dates, err := h.service.RemoteDates(c.Context())
	if err != nil {
		return err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = utils.FormatDate(d)
	}
	return c.JSON(fiber.Map{"source": h.service.engine.Source().Name(), "dates": out})
}
