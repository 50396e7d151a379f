package diary

import (
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/logger"
	"diary-sync/core/models"
	"diary-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for entries, search and quick notes.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the diary routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	entries := app.Group("/entries")
	entries.Get("/", h.HandleList)
	entries.Get("/:date", h.HandleGet)
	entries.Put("/:date", h.HandlePut)

	app.Get("/search", h.HandleSearch)

	cache := app.Group("/cache")
	cache.Post("/", h.HandleInsert)
	cache.Post("/merge", h.HandleMerge)
}

// TextRequest is the body of write operations.
type TextRequest struct {
	Text string `json:"text"`
}

// EntryResponse is an entry as returned by the API.
type EntryResponse struct {
	Date         string    `json:"date"`
	Text         string    `json:"text"`
	LastModified time.Time `json:"last_modified"`
}

func toEntryResponse(e *models.DiaryEntry) EntryResponse {
	return EntryResponse{Date: utils.FormatDate(e.Date), Text: e.Text, LastModified: e.LastModified}
}

func pathDate(c *fiber.Ctx, op string) (time.Time, error) {
	d, err := utils.ParseDate(c.Params("date"))
	if err != nil {
		return time.Time{}, apperror.Invalid(op, err.Error())
	}
	return d, nil
}

func queryDate(c *fiber.Ctx, key, op string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := utils.ParseDate(raw)
	if err != nil {
		return nil, apperror.Invalid(op, key+": "+err.Error())
	}
	return &d, nil
}

// HandleList lists entry dates.
// @Summary List Entry Dates
// @Description Returns entry dates newest first. start and limit select a window; consecutive windows are disjoint and contiguous.
// @Tags entries
// @Produce json
// @Param min_date query string false "Earliest date (YYYY-MM-DD)"
// @Param max_date query string false "Latest date (YYYY-MM-DD)"
// @Param start query int false "Offset into the list"
// @Param limit query int false "Maximum number of dates"
// @Success 200 {object} map[string][]string "Dates"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /entries [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	const op = "list entries"
	var q ListQuery
	var err error
	if q.MinDate, err = queryDate(c, "min_date", op); err != nil {
		return err
	}
	if q.MaxDate, err = queryDate(c, "max_date", op); err != nil {
		return err
	}
	if q.Start, err = utils.ToOptionalInt(c.Query("start")); err != nil {
		return apperror.Invalid(op, "start: "+err.Error())
	}
	if q.Limit, err = utils.ToOptionalInt(c.Query("limit")); err != nil {
		return apperror.Invalid(op, "limit: "+err.Error())
	}

	dates, err := h.service.ListDates(c.Context(), q)
	if err != nil {
		return err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = utils.FormatDate(d)
	}
	return c.JSON(fiber.Map{"dates": out})
}

// HandleGet returns one entry.
// @Summary Get Entry
// @Tags entries
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} EntryResponse
// @Failure 400 {object} map[string]string "Invalid date"
// @Failure 404 {object} map[string]string "No entry"
// @Router /entries/{date} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	d, err := pathDate(c, "get entry")
	if err != nil {
		return err
	}
	entry, err := h.service.Get(c.Context(), d)
	if err != nil {
		return err
	}
	return c.JSON(toEntryResponse(entry))
}

// HandlePut overwrites one entry.
// @Summary Put Entry
// @Description Overwrites the text of an entry without diffing.
// @Tags entries
// @Accept json
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param body body TextRequest true "Entry text"
// @Success 200 {object} EntryResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /entries/{date} [put]
func (h *Handler) HandlePut(c *fiber.Ctx) error {
	d, err := pathDate(c, "put entry")
	if err != nil {
		return err
	}
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Invalid("put entry", "malformed body")
	}

	entry, err := h.service.Put(c.Context(), d, req.Text)
	if err != nil {
		return err
	}
	logger.WithRayID(h.service.logger, c).Info("Entry updated", zap.String("date", utils.FormatDate(d)))
	return c.JSON(toEntryResponse(entry))
}

// HandleSearch searches entries and notes.
// @Summary Search
// @Description With date, returns that entry. With text, "today", YYYY-MM-DD, YYYY-MM, YYYY or a phrase such as "last friday" select by date; anything else matches entry and note text.
// @Tags entries
// @Produce json
// @Param text query string false "Query"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Success 200 {object} map[string][]SearchResult "Results"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /search [get]
func (h *Handler) HandleSearch(c *fiber.Ctx) error {
	d, err := queryDate(c, "date", "search")
	if err != nil {
		return err
	}

	var results []SearchResult
	if d != nil {
		results, err = h.service.SearchDate(c.Context(), *d)
	} else {
		results, err = h.service.Search(c.Context(), c.Query("text"))
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"results": results})
}

// HandleInsert stores a quick note.
// @Summary Insert Quick Note
// @Description Stores a timestamped note that is merged into the entry of its day on the next sync.
// @Tags cache
// @Accept json
// @Produce json
// @Param body body TextRequest true "Note text"
// @Success 201 {object} map[string]string "Stored note"
// @Failure 400 {object} map[string]string "Empty note"
// @Router /cache [post]
func (h *Handler) HandleInsert(c *fiber.Ctx) error {
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Invalid("insert", "malformed body")
	}
	note, err := h.service.Insert(c.Context(), req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"datetime": utils.FormatSyncTime(note.DiaryDatetime),
		"text":     note.DiaryText,
	})
}

// HandleMerge merges quick notes into entries.
// @Summary Merge Quick Notes
// @Tags cache
// @Produce json
// @Success 200 {object} map[string][]string "Merged dates"
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /cache/merge [post]
func (h *Handler) HandleMerge(c *fiber.Ctx) error {
	dates, err := h.service.MergeCache(c.Context())
	if err != nil {
		return err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = utils.FormatDate(d)
	}
	logger.WithRayID(h.service.logger, c).Info("Quick notes merged", zap.Strings("dates", out))
	return c.JSON(fiber.Map{"merged": out})
}
