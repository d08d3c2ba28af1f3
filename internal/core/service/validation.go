package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/tradedesk/auth-service/internal/core/domain"
	"github.com/tradedesk/auth-service/internal/core/ports"
)

type registration struct {
	Username string `validate:"required,min=3"`
	Email    string `validate:"required"`
	Password string `validate:"required,min=6"`
}

type credentials struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// inputValidator wraps go-playground/validator and collapses its field errors
// into a single domain error, picked in a fixed order: missing fields first,
// then username length, then password length.
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	return &inputValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (iv *inputValidator) registration(in ports.RegisterInput) error {
	err := iv.v.Struct(registration{Username: in.Username, Email: in.Email, Password: in.Password})
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	var usernameShort, passwordShort bool
	for _, fe := range ve {
		switch {
		case fe.Tag() == "required":
			return domain.ErrMissingFields
		case fe.Field() == "Username":
			usernameShort = true
		case fe.Field() == "Password":
			passwordShort = true
		}
	}
	switch {
	case usernameShort:
		return domain.ErrUsernameTooShort
	case passwordShort:
		return domain.ErrPasswordTooShort
	}
	return domain.ErrMissingFields
}

func (iv *inputValidator) credentials(in ports.LoginInput) error {
	if err := iv.v.Struct(credentials{Email: in.Email, Password: in.Password}); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return domain.ErrMissingCredentials
		}
		return err
	}
	return nil
}
