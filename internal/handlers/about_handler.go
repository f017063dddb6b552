package handlers

import (
	"atelier/internal/models"
	"atelier/internal/services"

	"github.com/gofiber/fiber/v2"
)

const storyImageField = "image"

// AboutHandler serves the about page and its success stories.
type AboutHandler struct {
	*SingletonHandler[models.AboutPage, *models.AboutPage]
	service *services.AboutService
}

func NewAboutHandler(service *services.AboutService) *AboutHandler {
	return &AboutHandler{
		SingletonHandler: NewSingletonHandler(service.SingletonService),
		service:          service,
	}
}

// RegisterRoutes mounts the page at path and stories under path/stories.
func (h *AboutHandler) RegisterRoutes(router fiber.Router, path string, gate fiber.Handler) {
	h.SingletonHandler.RegisterRoutes(router, path, gate)
	stories := router.Group(path+"/stories", gate)
	stories.Post("/", h.HandleAddStory)
	stories.Put("/:storyId", h.HandleUpdateStory)
	stories.Delete("/:storyId", h.HandleDeleteStory)
}

func (h *AboutHandler) HandleAddStory(c *fiber.Ctx) error {
	var story models.SuccessStory
	if err := bindBody(c, &story); err != nil {
		return err
	}
	files, err := readFiles(c, []string{storyImageField}, h.service.MaxUploadSize())
	if err != nil {
		return err
	}
	created, err := h.service.AddStory(c.UserContext(), story, singleFile(files, storyImageField))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *AboutHandler) HandleUpdateStory(c *fiber.Ctx) error {
	files, err := readFiles(c, []string{storyImageField}, h.service.MaxUploadSize())
	if err != nil {
		return err
	}
	updated, err := h.service.UpdateStory(c.UserContext(), c.Params("storyId"), func(s *models.SuccessStory) error {
		return bindBody(c, s)
	}, singleFile(files, storyImageField))
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *AboutHandler) HandleDeleteStory(c *fiber.Ctx) error {
	if err := h.service.DeleteStory(c.UserContext(), c.Params("storyId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Success story deleted successfully"})
}
