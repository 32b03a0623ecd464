package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Теги, которые регистрируются в валидаторе gin.
var rules = map[string]func(string) error{
	"phone":      ValidatePhone,
	"otp":        ValidateOTP,
	"password":   ValidatePassword,
	"name":       ValidateName,
	"identifier": ValidateIdentifier,
}

// Сообщения об отсутствующих полях, по json имени поля.
var requiredMessages = map[string]string{
	"phoneNumber":     "Phone number is required",
	"otp":             "OTP is required",
	"password":        "Password is required",
	"newPassword":     "New password is required",
	"confirmPassword": "Password confirmation is required",
	"name":            "Name is required",
	"identifier":      "Email or phone number is required",
	"refreshToken":    "Refresh token is required",
}

var registerOnce sync.Once

// RegisterGinValidators добавляет собственные теги в валидатор gin binding.
// Поля в ошибках называются по json тегу.
func RegisterGinValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)

		for tag, rule := range rules {
			rule := rule
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return rule(fl.Field().String()) == nil
			})
		}
	})
}

// Messages превращает ошибку биндинга в список сообщений для клиента.
// Второй результат false, если err не является ошибкой валидации.
func Messages(err error) ([]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return msgs, true
}

func message(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		if msg, ok := requiredMessages[field]; ok {
			return msg
		}
		return field + " is required"
	case "email":
		return "Please provide a valid email address"
	}

	if rule, ok := rules[fe.Tag()]; ok {
		if s, ok := fe.Value().(string); ok {
			if err := rule(s); err != nil {
				return err.Error()
			}
		}
	}

	return field + " is invalid"
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
