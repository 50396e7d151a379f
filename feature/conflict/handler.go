package conflict

import (
	"net/url"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/diff"
	"diary-sync/core/logger"
	"diary-sync/core/models"
	"diary-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for conflict resolution.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the conflict routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/conflicts")
	group.Get("/", h.HandleList)
	// Hunk routes go first so "hunks" is never read as a date.
	group.Patch("/hunks/:id", h.HandleToggle)
	group.Delete("/hunks/:id", h.HandleDiscardHunk)
	group.Get("/:date/:sync", h.HandleShow)
	group.Post("/:date/:sync/commit", h.HandleCommit)
	group.Delete("/:date/:sync", h.HandleDiscard)
}

// EpisodeSummaryResponse is one entry of the episode list.
type EpisodeSummaryResponse struct {
	Date      string `json:"date"`
	Sync      string `json:"sync"`
	HunkCount int    `json:"hunk_count"`
}

// HunkResponse is a hunk as returned by the API.
type HunkResponse struct {
	ID        string    `json:"id"`
	Type      diff.Type `json:"type"`
	Text      string    `json:"text"`
	Seq       int       `json:"seq"`
	LocalLine int       `json:"local_line"`
	Included  bool      `json:"included"`
}

// EpisodeResponse is a full episode.
type EpisodeResponse struct {
	Date    string         `json:"date"`
	Sync    string         `json:"sync"`
	Hunks   []HunkResponse `json:"hunks"`
	Preview string         `json:"preview"`
	Stale   bool           `json:"stale"`
}

// ToggleRequest is the body of a toggle.
type ToggleRequest struct {
	Direction diff.Type `json:"direction"`
}

func toHunkResponse(h models.ConflictHunk) HunkResponse {
	return HunkResponse{ID: h.ID, Type: h.DiffType, Text: h.DiffText, Seq: h.Seq, LocalLine: h.LocalLine, Included: h.Included}
}

func episodeKey(c *fiber.Ctx, op string) (models.EpisodeKey, error) {
	date, err := utils.ParseDate(c.Params("date"))
	if err != nil {
		return models.EpisodeKey{}, apperror.Invalid(op, err.Error())
	}
	raw, err := url.PathUnescape(c.Params("sync"))
	if err != nil {
		return models.EpisodeKey{}, apperror.Invalid(op, "malformed sync datetime")
	}
	sync, err := utils.ParseSyncTime(raw)
	if err != nil {
		return models.EpisodeKey{}, apperror.Invalid(op, err.Error())
	}
	return models.EpisodeKey{DiaryDate: date, SyncDatetime: sync}, nil
}

// HandleList lists unresolved episodes.
// @Summary List Conflict Episodes
// @Tags conflicts
// @Produce json
// @Param date query string false "Only this date (YYYY-MM-DD)"
// @Success 200 {object} map[string][]EpisodeSummaryResponse "Episodes"
// @Failure 400 {object} map[string]string "Invalid date"
// @Router /conflicts [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			return apperror.Invalid("list episodes", err.Error())
		}
		date = &d
	}

	out := []EpisodeSummaryResponse{}
	for ep, err := range h.service.Episodes(c.Context(), date) {
		if err != nil {
			return err
		}
		out = append(out, EpisodeSummaryResponse{
			Date:      utils.FormatDate(ep.DiaryDate),
			Sync:      utils.FormatSyncTime(ep.SyncDatetime),
			HunkCount: ep.HunkCount,
		})
	}
	return c.JSON(fiber.Map{"episodes": out})
}

// HandleShow returns one episode.
// @Summary Show Conflict Episode
// @Description Returns the hunks of an episode in edit-script order and the text a commit would produce.
// @Tags conflicts
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param sync path string true "Sync datetime (RFC3339)"
// @Success 200 {object} EpisodeResponse
// @Failure 404 {object} map[string]string "No such episode"
// @Router /conflicts/{date}/{sync} [get]
func (h *Handler) HandleShow(c *fiber.Ctx) error {
	key, err := episodeKey(c, "show episode")
	if err != nil {
		return err
	}
	ep, err := h.service.ShowEpisode(c.Context(), key)
	if err != nil {
		return err
	}

	hunks := make([]HunkResponse, len(ep.Hunks))
	for i, hk := range ep.Hunks {
		hunks[i] = toHunkResponse(hk)
	}
	return c.JSON(EpisodeResponse{
		Date:    utils.FormatDate(ep.DiaryDate),
		Sync:    utils.FormatSyncTime(ep.SyncDatetime),
		Hunks:   hunks,
		Preview: ep.Preview,
		Stale:   ep.Stale,
	})
}

// HandleToggle flips the inclusion of a hunk.
// @Summary Toggle Hunk
// @Description direction must equal the hunk's type (add or rem).
// @Tags conflicts
// @Accept json
// @Produce json
// @Param id path string true "Hunk ID"
// @Param body body ToggleRequest true "Direction"
// @Success 200 {object} HunkResponse
// @Failure 400 {object} map[string]string "Direction mismatch"
// @Failure 404 {object} map[string]string "No such hunk"
// @Router /conflicts/hunks/{id} [patch]
func (h *Handler) HandleToggle(c *fiber.Ctx) error {
	var req ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Invalid("toggle hunk", "malformed body")
	}
	hunk, err := h.service.ToggleHunk(c.Context(), c.Params("id"), req.Direction)
	if err != nil {
		return err
	}
	return c.JSON(toHunkResponse(*hunk))
}

// HandleDiscardHunk removes one hunk.
// @Summary Discard Hunk
// @Tags conflicts
// @Param id path string true "Hunk ID"
// @Success 204
// @Failure 404 {object} map[string]string "No such hunk"
// @Router /conflicts/hunks/{id} [delete]
func (h *Handler) HandleDiscardHunk(c *fiber.Ctx) error {
	if err := h.service.DiscardHunk(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleCommit resolves an episode.
// @Summary Commit Episode
// @Description Applies the included hunks to the entry and removes the episode. With push=true the result is uploaded to the remote.
// @Tags conflicts
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param sync path string true "Sync datetime (RFC3339)"
// @Param push query boolean false "Upload the merged entry"
// @Success 200 {object} map[string]interface{} "Merged entry"
// @Failure 404 {object} map[string]string "No such episode"
// @Failure 409 {object} map[string]string "Entry changed since sync"
// @Failure 502 {object} map[string]string "Push failed"
// @Router /conflicts/{date}/{sync}/commit [post]
func (h *Handler) HandleCommit(c *fiber.Ctx) error {
	key, err := episodeKey(c, "commit episode")
	if err != nil {
		return err
	}
	entry, err := h.service.CommitEpisode(c.Context(), key)
	if err != nil {
		return err
	}

	pushed := false
	if utils.ToBool(c.Query("push")) {
		if err := h.service.Push(c.Context(), key.DiaryDate); err != nil {
			logger.WithRayID(h.service.logger, c).Warn("Push after commit failed", zap.Error(err))
			return err
		}
		pushed = true
	}
	return c.JSON(fiber.Map{
		"date":   utils.FormatDate(entry.Date),
		"text":   entry.Text,
		"pushed": pushed,
	})
}

// HandleDiscard drops an episode.
// @Summary Discard Episode
// @Tags conflicts
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param sync path string true "Sync datetime (RFC3339)"
// @Success 204
// @Failure 404 {object} map[string]string "No such episode"
// @Router /conflicts/{date}/{sync} [delete]
func (h *Handler) HandleDiscard(c *fiber.Ctx) error {
	key, err := episodeKey(c, "discard episode")
	if err != nil {
		return err
	}
	if err := h.service.DiscardEpisode(c.Context(), key); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
