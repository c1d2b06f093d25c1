package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"etalase/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// TreeHandler serves a RemoteCollectionClient over the realtime-database
// REST convention, so RESTRemote clients can talk to it.
type TreeHandler struct {
	remote repositories.RemoteCollectionClient
	verify func(token string) error
}

// NewTreeHandler creates a TreeHandler. When verify is non-nil every request
// must carry a token it accepts, either as ?auth= or a bearer header.
func NewTreeHandler(remote repositories.RemoteCollectionClient, verify func(token string) error) *TreeHandler {
	return &TreeHandler{remote: remote, verify: verify}
}

// RegisterRoutes registers the tree routes with the Fiber router.
func (h *TreeHandler) RegisterRoutes(router fiber.Router) {
	tree := router.Group("/db", h.authorize)
	tree.Get("/*", h.HandleRead)
	tree.Put("/*", h.HandleWrite)
	tree.Patch("/*", h.HandleMerge)
	tree.Delete("/*", h.HandleDelete)
	tree.Post("/*", h.HandleAppend)
}

func (h *TreeHandler) authorize(c *fiber.Ctx) error {
	if h.verify == nil {
		return c.Next()
	}
	token := c.Query("auth")
	if token == "" {
		token = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Permission denied"})
	}
	if err := h.verify(token); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Permission denied"})
	}
	return c.Next()
}

func treePath(c *fiber.Ctx) string {
	return strings.TrimSuffix(c.Params("*"), ".json")
}

// HandleRead returns the node at the path, or null.
func (h *TreeHandler) HandleRead(c *fiber.Ctx) error {
	path := treePath(c)
	var node interface{}
	found, err := h.remote.Read(c.UserContext(), path, &node)
	if err != nil {
		return h.fail(c, "read", path, err)
	}
	if !found {
		c.Type("json")
		return c.SendString("null")
	}
	return c.JSON(node)
}

// HandleWrite replaces the node at the path and echoes the stored value.
func (h *TreeHandler) HandleWrite(c *fiber.Ctx) error {
	path := treePath(c)
	var node interface{}
	if err := json.Unmarshal(c.Body(), &node); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data; couldn't parse JSON object"})
	}
	if err := h.remote.Write(c.UserContext(), path, node); err != nil {
		return h.fail(c, "write", path, err)
	}
	if node == nil {
		c.Type("json")
		return c.SendString("null")
	}
	return c.JSON(node)
}

// HandleMerge updates the named children of the path.
func (h *TreeHandler) HandleMerge(c *fiber.Ctx) error {
	path := treePath(c)
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil || fields == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data; couldn't parse JSON object"})
	}
	if err := h.remote.Merge(c.UserContext(), path, fields); err != nil {
		return h.fail(c, "merge", path, err)
	}
	return c.JSON(fields)
}

// HandleDelete removes the node at the path.
func (h *TreeHandler) HandleDelete(c *fiber.Ctx) error {
	path := treePath(c)
	if err := h.remote.Delete(c.UserContext(), path); err != nil {
		return h.fail(c, "delete", path, err)
	}
	c.Type("json")
	return c.SendString("null")
}

// HandleAppend stores the body under a generated child key.
func (h *TreeHandler) HandleAppend(c *fiber.Ctx) error {
	path := treePath(c)
	var node interface{}
	if err := json.Unmarshal(c.Body(), &node); err != nil || node == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data; couldn't parse JSON object"})
	}
	id, err := h.remote.AppendGenerateID(c.UserContext(), path, node)
	if err != nil {
		return h.fail(c, "append", path, err)
	}
	return c.JSON(fiber.Map{"name": id})
}

func (h *TreeHandler) fail(c *fiber.Ctx, op, path string, err error) error {
	if errors.Is(err, repositories.ErrInvalidPath) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Error().Err(err).Str("op", op).Str("path", path).Msg("tree operation failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
