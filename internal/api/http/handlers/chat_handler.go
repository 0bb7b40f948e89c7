package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// ChatHandler serves the per-grievance message thread.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates the handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Post appends a message to the thread.
func (h *ChatHandler) Post(c *fiber.Ctx) error {
	sender, err := senderFromContext(c)
	if err != nil {
		return err
	}

	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	msg, err := h.chat.PostMessage(c.UserContext(), sender, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromChatMessage(msg))
}

// List returns the thread history plus the caller's unread badge count.
func (h *ChatHandler) List(c *fiber.Ctx) error {
	reader, err := senderFromContext(c)
	if err != nil {
		return err
	}
	grievanceID := c.Params("id")

	msgs, err := h.chat.ListThread(c.UserContext(), reader, grievanceID)
	if err != nil {
		return err
	}
	unread, err := h.chat.UnreadCount(c.UserContext(), reader, grievanceID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ThreadResponse{
		Messages:    dto.FromChatMessages(msgs),
		UnreadCount: unread,
	})
}

// MarkRead flags one message as read by the caller.
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	reader, err := senderFromContext(c)
	if err != nil {
		return err
	}
	if err := h.chat.MarkRead(c.UserContext(), reader, c.Params("id"), c.Params("messageId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func senderFromContext(c *fiber.Ctx) (domain.SenderRef, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.SenderRef{}, apperrors.NewUnauthorized("authentication required")
	}
	kind := domain.SenderKindPetitioner
	if principal.SubjectType == domain.SubjectTypeStaff {
		kind = domain.SenderKindStaff
	}
	return domain.SenderRef{Kind: kind, ID: principal.SubjectID}, nil
}
