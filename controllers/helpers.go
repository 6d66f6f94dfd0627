package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/gorm"
)

// currentUser pulls the authenticated user set by the auth middleware.
func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "User not found")
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	if !ok {
		utils.LogError("Invalid user type in context")
		utils.BadRequest(c, "Invalid user in context", nil)
		return models.User{}, false
	}
	return user, true
}

// respondServiceError maps the settlement error taxonomy onto the response
// envelope through AppError. AlreadyProcessed never reaches here; it is a
// success result.
func respondServiceError(c *gin.Context, err error) {
	appErr, details := toAppError(err)
	if appErr.Code == http.StatusInternalServerError {
		utils.LogError("Internal error: %v", appErr)
	}
	utils.Error(c, appErr.Code, appErr.Message, details)
}

// toAppError converts a settlement error into the AppError taxonomy plus any
// structured detail the response should carry.
func toAppError(err error) (*utils.AppError, interface{}) {
	if appErr := utils.GetAppError(err); appErr != nil {
		return appErr, nil
	}

	var (
		validationErr   *services.ValidationError
		insufficientErr *services.InsufficientFundsError
		gatewayErr      *services.GatewayVerificationError
	)
	switch {
	case errors.As(err, &validationErr):
		return utils.BadRequestError(validationErr.Message, nil), nil
	case errors.As(err, &insufficientErr):
		return utils.UnprocessableError("Insufficient funds", err), gin.H{
			"required":  insufficientErr.Required,
			"available": insufficientErr.Available,
			"currency":  insufficientErr.Currency,
		}
	case errors.As(err, &gatewayErr):
		return utils.PaymentRequiredError("Payment was not successful", err), gin.H{
			"reference": gatewayErr.Reference,
			"status":    gatewayErr.Status,
		}
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return utils.NotFoundError("Reference not found", err), nil
	default:
		return utils.NewAppError(http.StatusInternalServerError, "Something went wrong", err), nil
	}
}
