package integrity

import (
	"diary-sync/core/logger"
	"diary-sync/core/utils"
	"diary-sync/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = checks.SchemaReport{}
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/remote", h.HandleRemoteCheck)
	group.Get("/episodes", h.HandleEpisodeCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs the schema, remote and episode checks. Failures are reported per check.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.Context()
	report := make(map[string]interface{})

	if schema, err := h.service.CheckSchema(); err != nil {
		report["schema"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schema
	}

	remote := map[string]interface{}{"remote": h.service.CheckRemote(ctx)}
	if h.service.HasBucket() {
		if bucket, err := h.service.CheckBucket(ctx); err != nil {
			remote["bucket"] = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			remote["bucket"] = bucket
		}
	}
	report["remote"] = remote

	if episodes, err := h.service.CheckEpisodes(ctx); err != nil {
		report["episodes"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["episodes"] = episodes
	}

	return c.JSON(report)
}

// HandleSchemaCheck checks the database schema.
// @Summary Check Schema
// @Description Checks that the diary tables match the expected models.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Schema drift detected", zap.Strings("errors", report.Errors))
	}
	return c.JSON(report)
}

// HandleRemoteCheck checks and optionally fixes the remote.
// @Summary Check Remote
// @Description Lists the remote once. For an s3 remote the bucket is checked too and fix=true creates it.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Create a missing bucket"
// @Success 200 {object} map[string]interface{} "Remote Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/remote [get]
func (h *Handler) HandleRemoteCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	ctx := c.Context()
	fix := utils.ToBool(c.Query("fix"))

	out := fiber.Map{}
	if h.service.HasBucket() {
		bucket, err := h.service.CheckBucket(ctx)
		if err != nil {
			l.Error("Bucket check failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if !bucket.Exists {
			l.Warn("Bucket is missing", zap.String("bucket", bucket.Bucket))
			if fix {
				created, err := h.service.FixBucket(ctx)
				if err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error":   "Failed to create bucket",
						"details": err.Error(),
					})
				}
				bucket.Exists = true
				bucket.Created = created
			}
		}
		out["bucket"] = bucket
	}

	remote := h.service.CheckRemote(ctx)
	if !remote.Reachable {
		l.Warn("Remote is unreachable", zap.String("source", remote.Source), zap.String("error", remote.Error))
	}
	out["remote"] = remote
	return c.JSON(out)
}

// HandleEpisodeCheck reports unresolved episodes.
// @Summary Check Pending Episodes
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.EpisodeReport "Episode Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/episodes [get]
func (h *Handler) HandleEpisodeCheck(c *fiber.Ctx) error {
	report, err := h.service.CheckEpisodes(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Episode check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}
