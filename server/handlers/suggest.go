package handlers

import (
	"fmt"

	"chatrelay/apperrors"
	"chatrelay/services/relay"

	"github.com/gofiber/fiber/v2"
)

type suggestRequest struct {
	UserMessage         string `json:"userMessage"`
	CounterpartyAddress string `json:"counterpartyAddress"`
	PhoneNumber         string `json:"phoneNumber"`
}

// HandleSuggest drafts a reply for the operator without storing or sending it.
func HandleSuggest(rs *relay.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req suggestRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewBadRequest("Invalid request body").WithInternal(err)
		}

		counterparty := req.CounterpartyAddress
		if counterparty == "" {
			counterparty = req.PhoneNumber
		}

		reply, err := rs.Suggest(c.UserContext(), req.UserMessage, counterparty)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"reply":    reply.Text,
			"fallback": reply.Fallback,
			"context":  fmt.Sprintf("Generated response based on %d previous messages", reply.ContextSize),
		})
	}
}
