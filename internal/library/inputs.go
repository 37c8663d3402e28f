package library

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/elibrary/internal/apperr"
)

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Author      string `form:"author" json:"author" validate:"required,max=200"`
	Description string `form:"description" json:"description"`
	CategoryID  uint   `form:"category_id" json:"category_id" validate:"required"`
}

// Upload is a file submitted with a new book. A nil Body means no file.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

// UserInput is the admin form for creating an account.
type UserInput struct {
	Username        string `form:"username" json:"username" validate:"required,min=4,max=20"`
	Email           string `form:"email" json:"email" validate:"required,email,max=120"`
	FullName        string `form:"full_name" json:"full_name" validate:"required,min=2,max=100"`
	Password        string `form:"password" json:"password" validate:"required,min=6,maxbytes=72"`
	PasswordConfirm string `form:"password2" json:"password2" validate:"required,eqfield=Password"`
	IsAdmin         bool   `form:"is_admin" json:"is_admin"`
}

// CategoryInput is the admin form for a new category.
type CategoryInput struct {
	Name        string `form:"name" json:"name" validate:"required,min=2,max=100"`
	Description string `form:"description" json:"description"`
}

// ProfileInput is the self-service profile form.
type ProfileInput struct {
	Username string `form:"username" json:"username" validate:"required,min=4,max=20"`
	Email    string `form:"email" json:"email" validate:"required,email,max=120"`
	FullName string `form:"full_name" json:"full_name" validate:"required,min=2,max=100"`
}

// PasswordInput is the self-service password change form.
type PasswordInput struct {
	CurrentPassword string `form:"current_password" json:"current_password" validate:"required"`
	Password        string `form:"password" json:"password" validate:"required,min=6,maxbytes=72"`
	PasswordConfirm string `form:"password2" json:"password2" validate:"required,eqfield=Password"`
}

func (in *BookInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *UserInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
}

func (in *CategoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *ProfileInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
}

// newValidator reports field errors under their form names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// bcrypt only reads the first 72 bytes, so passwords are capped in
	// bytes, not characters.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

// check runs struct validation and converts failures to a ValidationError.
// It returns nil, not a typed nil, when input is valid.
func check(v *validator.Validate, input any) *apperr.ValidationError {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	verr := &apperr.ValidationError{}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_form", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Field cannot be longer than %s bytes.", fe.Param())
	case "eqfield":
		return "Passwords must match."
	}
	return "Invalid value."
}

// orNil avoids returning a typed nil pointer inside an error interface.
func orNil(verr *apperr.ValidationError) error {
	if verr == nil || !verr.HasErrors() {
		return nil
	}
	return verr
}
