package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "body is empty or malformed"})
		return err
	}
	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": firstValidationMessage(err)})
		return err
	}
	return nil
}

func firstValidationMessage(err error) string {
	if ve, ok := err.(validatorv10.ValidationErrors); ok && len(ve) > 0 {
		switch ve[0].Field() {
		case "Token":
			return "'token' is missing"
		case "Params":
			return "'params' is missing"
		}
	}
	return "invalid request"
}
