package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// ErrBadRequest is wrapped by every BindAndValidate failure.
var ErrBadRequest = errors.New("bad request")

// BindAndValidate decodes the JSON body into out and validates it. On failure the
// 400 response has already been written and the handler only has to return.
func BindAndValidate(c *gin.Context, out any, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return fmt.Errorf("%w: decode: %w", ErrBadRequest, err)
	}

	if err := v.Struct(out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": FieldErrors(err),
		})
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// FieldErrors maps each failing field, keyed by its json path below the root
// struct (shipping_address.city), to a short reason.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		out[key] = Reason(fe)
	}
	return out
}
