package handlers

import (
	"chatrelay/apperrors"
	"chatrelay/infrastructure/carrier"
	"chatrelay/services/relay"

	"github.com/gofiber/fiber/v2"
)

// HandleWebhook receives an inbound carrier message. Form posts are answered
// with TwiML; JSON posts get a JSON acknowledgement.
func HandleWebhook(rs *relay.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		isJSON := c.Is("json")

		var ev carrier.InboundEvent
		if isJSON {
			if err := c.BodyParser(&ev); err != nil {
				return apperrors.NewBadRequest("Invalid request body").WithInternal(err)
			}
		} else {
			ev = carrier.ParseInboundForm(func(key string) string {
				return c.FormValue(key)
			})
		}

		res, err := rs.ReceiveInbound(c.UserContext(), ev)
		if err != nil {
			return err
		}

		if isJSON {
			resp := fiber.Map{
				"success":   true,
				"messageId": res.Inbound.ID,
				"delivery":  res.Delivery,
				"fallback":  res.Fallback,
			}
			if res.Reply != nil {
				resp["reply"] = res.Reply.Body
			}
			if res.ProviderMessageID != "" {
				resp["messageSid"] = res.ProviderMessageID
			}
			return c.JSON(resp)
		}

		inline := ""
		if res.Delivery == relay.DeliveryTwiML && res.Reply != nil {
			inline = res.Reply.Body
		}
		doc, err := carrier.RenderTwiML(inline)
		if err != nil {
			return apperrors.NewInternalError("Failed to render reply").WithInternal(err)
		}

		c.Set(fiber.HeaderContentType, carrier.TwiMLContentType)
		return c.Send(doc)
	}
}
