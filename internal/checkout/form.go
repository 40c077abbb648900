package checkout

import (
	"strings"

	"github.com/phuocduongts/storefront/internal/forms"
	"github.com/phuocduongts/storefront/internal/models"
)

// ValidationErrors lists every failing field of a submitted form.
type ValidationErrors = forms.Errors

// ShippingForm is the checkout form as posted by the customer.
type ShippingForm struct {
	FullName      string `form:"fullName" validate:"required"`
	Email         string `form:"email" validate:"required,basicemail"`
	Phone         string `form:"phone" validate:"required,phone"`
	Address       string `form:"address" validate:"required"`
	Province      string `form:"province" validate:"required"`
	District      string `form:"district" validate:"required"`
	Ward          string `form:"ward" validate:"required"`
	PaymentMethod string `form:"paymentMethod" validate:"required,oneof=COD BANK_TRANSFER CREDIT_CARD"`
	Notes         string `form:"notes"`
}

// Validate trims the form in place and reports all failing fields.
func (f *ShippingForm) Validate() error {
	forms.Trim(f)
	f.PaymentMethod = strings.ToUpper(f.PaymentMethod)
	if errs := forms.Validate(f); errs != nil {
		return errs
	}
	return nil
}

// ShippingAddress joins the address lines the way the backend stores them.
func (f ShippingForm) ShippingAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{f.Address, f.Ward, f.District, f.Province} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ShippingFormFor prefills the form from the signed-in user's profile.
func ShippingFormFor(u models.User) ShippingForm {
	return ShippingForm{
		FullName:      u.FullName,
		Email:         u.Email,
		Phone:         u.Phone,
		Address:       u.Address,
		Province:      u.Province,
		District:      u.District,
		Ward:          u.Ward,
		PaymentMethod: string(models.PaymentMethodCOD),
	}
}
