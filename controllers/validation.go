package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// int32Range matches the MySQL INT columns the order tables use.
const int32Range = "min=-2147483648,max=2147483647"

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterAlias("int32", int32Range)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// bindingMessage turns a ShouldBindJSON error into a client-facing message
// naming the offending field.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fieldPath(fe)
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("missing required field `%s`", field)
		case "max":
			return fmt.Sprintf("field `%s` must be at most %s characters", field, fe.Param())
		case "gt":
			return fmt.Sprintf("field `%s` must be greater than %s", field, fe.Param())
		case "int32":
			return fmt.Sprintf("field `%s` must fit in a 32-bit integer", field)
		case "gte":
			return fmt.Sprintf("field `%s` must be at least %s", field, fe.Param())
		default:
			return fmt.Sprintf("field `%s` is invalid", field)
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field `%s` must be of type %s", typeErr.Field, typeErr.Type)
	}
	if errors.Is(err, io.EOF) {
		return "request body must be a JSON object"
	}
	return "invalid request body: " + err.Error()
}

// fieldPath drops the root struct name: "CreateOrderRequest.cart_item[0].quantity"
// becomes "cart_item[0].quantity".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}
