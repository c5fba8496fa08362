package handlers

import (
	"strings"

	"chatrelay/apperrors"
	"chatrelay/pkg/logger"
	"chatrelay/services/conversations"
	"chatrelay/services/feed"
	"chatrelay/services/relay"

	"github.com/gofiber/fiber/v2"
)

// HandleListMessages returns every message, or one conversation when
// ?counterparty= (or the legacy ?phoneNumber=) is given.
func HandleListMessages(conv *conversations.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		counterparty := strings.TrimSpace(c.Query("counterparty", c.Query("phoneNumber")))

		msgs := conv.All()
		if counterparty != "" {
			msgs = conv.Conversation(counterparty)
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"messages": msgs,
			"count":    len(msgs),
		})
	}
}

func HandleListPreviews(conv *conversations.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":  true,
			"previews": conv.Previews(),
		})
	}
}

func HandleActiveChats(conv *conversations.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chats := conv.ActiveChats()
		return c.JSON(fiber.Map{
			"success": true,
			"chats":   chats,
			"count":   len(chats),
		})
	}
}

// HandleClearMessages empties the store. pub may be nil.
func HandleClearMessages(rs *relay.Service, pub feed.Publisher, allowed bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !allowed {
			return apperrors.NewForbidden("Clearing messages is disabled").
				WithOperation("clear_messages").
				WithDetails("hint", "set ENABLE_CLEAR=true or APP_ENV=development")
		}

		rs.Clear()
		if pub != nil {
			if err := pub.Publish(c.UserContext(), feed.ClearedEvent()); err != nil {
				logger.WithError(err).Warn("Failed to publish clear event")
			}
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "All messages cleared",
		})
	}
}

type sendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func HandleSendMessage(rs *relay.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewBadRequest("Invalid request body").WithInternal(err)
		}

		res, err := rs.SendOutbound(c.UserContext(), req.To, req.Message)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"messageSid": res.ProviderMessageID,
			"message":    res.Message,
		})
	}
}
