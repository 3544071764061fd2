package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// ClientIDHeader identifies the device owning a recent-search list.
const ClientIDHeader = "X-Client-ID"

func clientID(c *fiber.Ctx) (string, bool) {
	id := c.Get(ClientIDHeader)
	return id, id != "" && len(id) <= 128
}

// ListRecentHandler returns the caller's recent destination searches, newest first.
func ListRecentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Recent == nil {
			return errUnavailable(c, "recent searches not configured")
		}
		id, ok := clientID(c)
		if !ok {
			return errBadRequest(c, ClientIDHeader+" header is required")
		}
		list, err := deps.Recent.List(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(list)
	}
}

// AddRecentHandler records a destination search and returns the updated list.
func AddRecentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Recent == nil {
			return errUnavailable(c, "recent searches not configured")
		}
		id, ok := clientID(c)
		if !ok {
			return errBadRequest(c, ClientIDHeader+" header is required")
		}
		var entry domain.RecentSearch
		if err := c.BodyParser(&entry); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		list, err := deps.Recent.Add(c.UserContext(), id, entry)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(list)
	}
}
