package handlers

import (
	"sync"

	"smooth/internal/middleware"
	"smooth/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormHandler exposes the list and the form screens of one entity. Every
// POST /forms opens an independent form owned by the signed-in user.
type FormHandler[T any] struct {
	service *services.FormService[T]
	logger  *zap.Logger

	mu    sync.Mutex
	forms map[string]*formSession[T]
}

type formSession[T any] struct {
	owner string
	form  *services.Form[T]
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler[T any](service *services.FormService[T], logger *zap.Logger) *FormHandler[T] {
	return &FormHandler[T]{
		service: service,
		logger:  logger.With(zap.String("entity", service.Schema().Entity)),
		forms:   make(map[string]*formSession[T]),
	}
}

// RegisterRoutes registers the entity routes under path, e.g. "/products".
func (h *FormHandler[T]) RegisterRoutes(router fiber.Router, path string) {
	routes := router.Group(path)
	routes.Get("/", h.HandleList)
	routes.Delete("/:key", h.HandleDelete)

	forms := routes.Group("/forms")
	forms.Post("/", h.HandleOpen)
	forms.Get("/:form", h.HandleState)
	forms.Patch("/:form", h.HandleInput)
	forms.Post("/:form/edit/:key", h.HandleEdit)
	forms.Post("/:form/submit", h.HandleSubmit)
	forms.Post("/:form/clear", h.HandleClear)
	forms.Delete("/:form", h.HandleClose)
}

// HandleList returns the current list. loading stays true until the first
// list arrived from the backend.
func (h *FormHandler[T]) HandleList(c *fiber.Ctx) error {
	list := h.service.List()
	return c.JSON(fiber.Map{
		"loading": !list.Loaded(),
		"items":   list.Items(),
	})
}

// HandleDelete removes a record. The request must carry confirm=true.
func (h *FormHandler[T]) HandleDelete(c *fiber.Ctx) error {
	key := utils.CopyString(c.Params("key"))
	if err := h.service.Delete(c.UserContext(), key, c.QueryBool("confirm")); err != nil {
		return respondError(c, h.logger, "Could not delete record", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleOpen opens a new, empty form.
func (h *FormHandler[T]) HandleOpen(c *fiber.Ctx) error {
	id := uuid.NewString()
	form := h.service.NewForm()

	h.mu.Lock()
	h.forms[id] = &formSession[T]{owner: middleware.UID(c), form: form}
	h.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     id,
		"fields": h.service.Schema().Fields,
		"state":  form.State(),
	})
}

// HandleState returns the state of a form.
func (h *FormHandler[T]) HandleState(c *fiber.Ctx) error {
	form, ok := h.lookup(c)
	if !ok {
		return formNotFound(c)
	}
	return c.JSON(form.State())
}

// HandleInput applies raw field values, masked the way the form masks them.
func (h *FormHandler[T]) HandleInput(c *fiber.Ctx) error {
	form, ok := h.lookup(c)
	if !ok {
		return formNotFound(c)
	}

	var values map[string]string
	if err := c.BodyParser(&values); err != nil {
		return badRequest(c, err)
	}
	if err := form.SetAll(values); err != nil {
		return respondError(c, h.logger, "Invalid input", err)
	}
	return c.JSON(form.State())
}

// HandleEdit loads a listed record into the form.
func (h *FormHandler[T]) HandleEdit(c *fiber.Ctx) error {
	form, ok := h.lookup(c)
	if !ok {
		return formNotFound(c)
	}
	// The form keeps the key past this request; Params aliases the request buffer.
	if err := form.Edit(utils.CopyString(c.Params("key"))); err != nil {
		return respondError(c, h.logger, "Could not edit record", err)
	}
	return c.JSON(form.State())
}

// HandleSubmit validates and saves the form.
func (h *FormHandler[T]) HandleSubmit(c *fiber.Ctx) error {
	form, ok := h.lookup(c)
	if !ok {
		return formNotFound(c)
	}

	key, err := form.Submit(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "Could not save record", err)
	}
	return c.JSON(fiber.Map{
		"key":   key,
		"state": form.State(),
	})
}

// HandleClear empties the form.
func (h *FormHandler[T]) HandleClear(c *fiber.Ctx) error {
	form, ok := h.lookup(c)
	if !ok {
		return formNotFound(c)
	}
	form.Clear()
	return c.JSON(form.State())
}

// HandleClose discards a form.
func (h *FormHandler[T]) HandleClose(c *fiber.Ctx) error {
	if _, ok := h.lookup(c); !ok {
		return formNotFound(c)
	}

	h.mu.Lock()
	delete(h.forms, c.Params("form"))
	h.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

// lookup finds the form named in the path. Forms of other users are not
// found.
func (h *FormHandler[T]) lookup(c *fiber.Ctx) (*services.Form[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.forms[c.Params("form")]
	if !ok || session.owner != middleware.UID(c) {
		return nil, false
	}
	return session.form, true
}

func formNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"message": "Form not found",
	})
}
