package furniture

import (
	"errors"
	"strconv"

	"syncstore/core/logger"
	"syncstore/core/repository"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for furniture.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the furniture routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/furniture")
	group.Get("/", h.HandleList)
	group.Get("/count", h.HandleCount)
	group.Post("/refresh", h.HandleRefresh)
	group.Get("/pages/:page", h.HandlePage)
	group.Get("/:identifier", h.HandleGet)
}

// HandleList returns the sorted listing of the cached catalogue.
//
//	GET /furniture
func (h *Handler) HandleList(c *fiber.Ctx) error {
	items := h.service.List()
	body := fiber.Map{
		"count": len(items),
		"items": items,
	}
	if err := h.service.LastError(); err != nil {
		body["last_error"] = err.Error()
	}
	return c.JSON(body)
}

// HandleCount returns the number of cached items.
//
//	GET /furniture/count
func (h *Handler) HandleCount(c *fiber.Ctx) error {
	n, err := h.service.Count(c.UserContext())
	if err != nil {
		return h.fail(c, "Furniture count failed", err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// HandleRefresh reconciles the cache with the gamedata.
//
//	POST /furniture/refresh
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	summary, err := h.service.Refresh(c.UserContext())
	if err != nil {
		return h.fail(c, "Furniture refresh failed", err)
	}
	return c.JSON(summary)
}

// HandlePage fetches one gamedata page into the cache.
//
//	GET /furniture/pages/:page
func (h *Handler) HandlePage(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Params("page"))
	if err != nil || page < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "page must be a non-negative integer",
		})
	}
	items, err := h.service.Page(c.UserContext(), page)
	if err != nil {
		return h.fail(c, "Furniture page fetch failed", err)
	}
	return c.JSON(fiber.Map{"page": page, "items": items})
}

// HandleGet returns one item. The gamedata is queried unless ?cached=true is set.
//
//	GET /furniture/:identifier
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	var err error
	if c.QueryBool("cached") {
		item, cErr := h.service.Cached(c.UserContext(), identifier)
		if cErr == nil {
			return c.JSON(item)
		}
		err = cErr
	} else {
		item, gErr := h.service.Get(c.UserContext(), identifier)
		if gErr == nil {
			return c.JSON(item)
		}
		err = gErr
	}

	if errors.Is(err, ErrItemNotFound) || errors.Is(err, repository.ErrNoResult) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return h.fail(c, "Furniture lookup failed", err)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	logger.WithRayID(h.logger, c).Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
