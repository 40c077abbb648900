package web

import (
	"net/http"

	"github.com/phuocduongts/storefront/internal/forms"
)

type ContactForm struct {
	Name    string `form:"name" validate:"required"`
	Email   string `form:"email" validate:"required,basicemail"`
	Phone   string `form:"phone" validate:"omitempty,phone"`
	Message string `form:"message" validate:"required"`
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type RegisterForm struct {
	Username        string `form:"username" validate:"required,username"`
	FullName        string `form:"fullName" validate:"required"`
	Email           string `form:"email" validate:"required,basicemail"`
	BirthDate       string `form:"birthDate" validate:"omitempty,usdate"`
	Gender          string `form:"gender" validate:"omitempty,oneof=male female other"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

type AccountForm struct {
	FullName string `form:"fullName" validate:"required"`
	Email    string `form:"email" validate:"required,basicemail"`
	Phone    string `form:"phone" validate:"omitempty,phone"`
	Address  string `form:"address"`
	Ward     string `form:"ward"`
	District string `form:"district"`
	Province string `form:"province"`
	Gender   string `form:"gender" validate:"omitempty,oneof=male female other"`
}

type PasswordForm struct {
	OldPassword     string `form:"oldPassword" validate:"required"`
	NewPassword     string `form:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type ForgotPasswordForm struct {
	Email string `form:"email" validate:"required,basicemail"`
}

type ResetPasswordForm struct {
	Email            string `form:"email" validate:"required,basicemail"`
	VerificationCode string `form:"verificationCode" validate:"required"`
	NewPassword      string `form:"newPassword" validate:"required,min=6"`
	ConfirmPassword  string `form:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// formView is the data of every form page: the submitted values and the
// field errors to show next to them.
type formView[T any] struct {
	Form   T
	Errors forms.Errors
	Error  string
	Extra  any
}

// parseForm decodes, trims and validates the posted form into dst.
func parseForm(r *http.Request, dst any) forms.Errors {
	if err := r.ParseForm(); err != nil {
		return forms.Errors{"form": "The form could not be read."}
	}
	forms.Decode(r.PostForm, dst)
	forms.Trim(dst)
	return forms.Validate(dst)
}
