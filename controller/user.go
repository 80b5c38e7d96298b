package controller

import (
	"chat-service/database"
	"chat-service/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func UserProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(*jwt.Token)
	claims := user.Claims.(jwt.MapClaims)

	userModel := new(model.User)

	if err := database.Postgres.First(&userModel, claims["id"]).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data": fiber.Map{
			"id":      userModel.ID,
			"created": userModel.CreatedAt.Unix(),
			"name":    userModel.Name,
			"email":   userModel.Email,
			"avatar":  userModel.AvatarUrl,
			"role":    userModel.Role,
			"otp":     userModel.Otp_enabled,
		},
	})
}

func AdminUsers(c *fiber.Ctx) error {
	users := []model.User{}
	if err := database.Postgres.Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
			"data":    nil,
		})
	}

	list := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		list = append(list, fiber.Map{
			"id":      user.ID,
			"created": user.CreatedAt.Unix(),
			"name":    user.Name,
			"email":   user.Email,
			"role":    user.Role,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    list,
	})
}
