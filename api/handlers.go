package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/worldstate/pkg/connection"
	"github.com/papercomputeco/worldstate/pkg/llm"
	"github.com/papercomputeco/worldstate/pkg/lorebook"
	"github.com/papercomputeco/worldstate/pkg/notify"
	"github.com/papercomputeco/worldstate/pkg/settings"
)

// KeyValue is one entry of GET /settings/keys.
type KeyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// LorebookResponse is a lorebook with its entries in display order.
type LorebookResponse struct {
	Name    string           `json:"name"`
	Entries []lorebook.Entry `json:"entries"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	return c.JSON(s.ext.Settings().Get(c.UserContext()))
}

// handlePatchSettings applies a JSON object of settings keys. Keys may be
// top-level field names or dotted (e.g. "injectionStrategy.depth").
func (s *Server) handlePatchSettings(c *fiber.Ctx) error {
	var values map[string]any
	if err := json.Unmarshal(c.Body(), &values); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "request body must be a JSON object"})
	}

	store := s.ext.Settings()
	if err := store.Apply(c.UserContext(), values); err != nil {
		if errors.Is(err, settings.ErrUnknownKey) {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(store.Get(c.UserContext()))
}

func (s *Server) handleResetSettings(c *fiber.Ctx) error {
	store := s.ext.Settings()
	store.Reset(c.UserContext())
	return c.JSON(store.Get(c.UserContext()))
}

func (s *Server) handleSettingsKeys(c *fiber.Ctx) error {
	cfg := s.ext.Settings().Get(c.UserContext())

	out := make([]KeyValue, 0, len(settings.ScalarKeys()))
	for _, k := range settings.ScalarKeys() {
		v, err := settings.GetValue(cfg, k)
		if err != nil {
			continue
		}
		out = append(out, KeyValue{Key: k, Value: v})
	}
	return c.JSON(out)
}

func (s *Server) handleListLorebooks(c *fiber.Ctx) error {
	books := s.ext.Lorebooks()
	if books == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "no lorebook provider is configured"})
	}

	names, err := books.ListResources(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list lorebooks", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list lorebooks"})
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(names)
}

func (s *Server) handleGetLorebook(c *fiber.Ctx) error {
	books := s.ext.Lorebooks()
	if books == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "no lorebook provider is configured"})
	}

	name := c.Params("name")
	book, err := books.LoadResource(c.UserContext(), name)
	if err != nil {
		var nf lorebook.NotFoundError
		if errors.As(err, &nf) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to load lorebook", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load lorebook"})
	}

	return c.JSON(LorebookResponse{Name: book.Name, Entries: book.SortedEntries()})
}

func (s *Server) handleListProfiles(c *fiber.Ctx) error {
	profiles, err := s.ext.Connections().ListConnectionProfiles(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list connection profiles", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list connection profiles"})
	}
	if profiles == nil {
		profiles = []connection.Profile{}
	}
	return c.JSON(profiles)
}

func (s *Server) handleListPresets(c *fiber.Ctx) error {
	presets, err := s.ext.Connections().ListPresets(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list presets", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list presets"})
	}
	if presets == nil {
		presets = []string{}
	}
	return c.JSON(presets)
}

// handleNotifications drains pending user notifications.
func (s *Server) handleNotifications(c *fiber.Ctx) error {
	if s.config.Notifications == nil {
		return c.JSON([]notify.Notification{})
	}

	items := s.config.Notifications.Drain()
	if items == nil {
		items = []notify.Notification{}
	}
	return c.JSON(items)
}
