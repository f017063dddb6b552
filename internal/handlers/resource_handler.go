package handlers

import (
	"fmt"

	"atelier/internal/models"
	"atelier/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ResourceHandler exposes a ResourceService as a REST collection.
type ResourceHandler[T any, PT models.EntityPtr[T]] struct {
	service *services.ResourceService[T, PT]
	label   string
}

// NewResourceHandler creates a ResourceHandler. label names the entity in
// response messages, e.g. "Product".
func NewResourceHandler[T any, PT models.EntityPtr[T]](service *services.ResourceService[T, PT], label string) *ResourceHandler[T, PT] {
	return &ResourceHandler[T, PT]{
		service: service,
		label:   label,
	}
}

// RegisterRoutes mounts the collection at path with public reads and gated
// writes.
func (h *ResourceHandler[T, PT]) RegisterRoutes(router fiber.Router, path string, gate fiber.Handler) {
	routes := router.Group(path)
	routes.Get("/", h.HandleList)
	routes.Get("/:id", h.HandleGet)
	routes.Post("/", gate, h.HandleCreate)
	routes.Put("/:id", gate, h.HandleUpdate)
	routes.Delete("/:id", gate, h.HandleDelete)
}

// HandleList returns the whole collection.
func (h *ResourceHandler[T, PT]) HandleList(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// HandleGet returns one record by id.
func (h *ResourceHandler[T, PT]) HandleGet(c *fiber.Ctx) error {
	item, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// HandleCreate accepts JSON or multipart form data.
func (h *ResourceHandler[T, PT]) HandleCreate(c *fiber.Ctx) error {
	item := new(T)
	if err := bindBody(c, item); err != nil {
		return err
	}
	files, err := readFiles(c, h.service.MediaFields(), h.service.MaxUploadSize())
	if err != nil {
		return err
	}

	created, err := h.service.Create(c.UserContext(), item, files)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdate changes the fields present in the body and replaces images
// for which files were sent.
func (h *ResourceHandler[T, PT]) HandleUpdate(c *fiber.Ctx) error {
	files, err := readFiles(c, h.service.MediaFields(), h.service.MaxUploadSize())
	if err != nil {
		return err
	}
	updated, err := h.service.Update(c.UserContext(), c.Params("id"), func(item *T) error {
		return bindBody(c, item)
	}, files)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// HandleDelete removes one record.
func (h *ResourceHandler[T, PT]) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("%s deleted successfully", h.label),
	})
}
