package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/omnipost/omnipost-api/internal/apperrors"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// respondError serializes an application error as {error, error_type}. The
// wrapped cause never reaches the response body.
func respondError(c *fiber.Ctx, err error) error {
	if appErr, ok := apperrors.AsError(err); ok {
		return c.Status(apperrors.HTTPStatus(appErr)).JSON(appErr)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      "something went wrong",
		"error_type": string(apperrors.KindInternal),
	})
}
