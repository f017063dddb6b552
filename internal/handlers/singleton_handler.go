package handlers

import (
	"atelier/internal/models"
	"atelier/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SingletonHandler exposes a document that exists exactly once.
type SingletonHandler[T any, PT models.EntityPtr[T]] struct {
	service *services.SingletonService[T, PT]
}

func NewSingletonHandler[T any, PT models.EntityPtr[T]](service *services.SingletonService[T, PT]) *SingletonHandler[T, PT] {
	return &SingletonHandler[T, PT]{service: service}
}

// RegisterRoutes mounts GET and gated PUT at path.
func (h *SingletonHandler[T, PT]) RegisterRoutes(router fiber.Router, path string, gate fiber.Handler) {
	router.Get(path, h.HandleGet)
	router.Put(path, gate, h.HandlePut)
}

// HandleGet never returns 404; an empty document is created on first read.
func (h *SingletonHandler[T, PT]) HandleGet(c *fiber.Ctx) error {
	item, err := h.service.Fetch(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// HandlePut upserts the document.
func (h *SingletonHandler[T, PT]) HandlePut(c *fiber.Ctx) error {
	files, err := readFiles(c, h.service.MediaFields(), h.service.MaxUploadSize())
	if err != nil {
		return err
	}
	item, err := h.service.Put(c.UserContext(), func(item *T) error {
		return bindBody(c, item)
	}, files)
	if err != nil {
		return err
	}
	return c.JSON(item)
}
