package validator

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags.
const (
	// TagNotBlank rejects strings that are empty after trimming whitespace.
	TagNotBlank = "notblank"
	// TagNoControl rejects strings containing control characters other than
	// tab, newline and carriage return.
	TagNoControl = "nocontrol"
	// TagMaxBytes limits the UTF-8 encoded length of a string, e.g. maxbytes=512.
	TagMaxBytes = "maxbytes"
)

func (v *Validator) registerCustomRules() {
	_ = v.RegisterValidationWithTranslation(TagNotBlank, validateNotBlank, map[string]string{
		LangEN: "{0} must not be blank",
		LangZH: "{0}不能为空白",
	})
	_ = v.RegisterValidationWithTranslation(TagNoControl, validateNoControl, map[string]string{
		LangEN: "{0} must not contain control characters",
		LangZH: "{0}不能包含控制字符",
	})
	_ = v.RegisterValidationWithTranslation(TagMaxBytes, validateMaxBytes, map[string]string{
		LangEN: "{0} must be at most {1} bytes",
		LangZH: "{0}长度不能超过{1}字节",
	})
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateNoControl(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic("validator: invalid maxbytes param " + fl.Param())
	}
	return len(fl.Field().String()) <= limit
}
