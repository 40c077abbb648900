package forms

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `form:"username" validate:"required,username"`
	Email    string `form:"email" validate:"required,basicemail"`
	Phone    string `form:"phone" validate:"omitempty,phone"`
	Birth    string `form:"birthDate" validate:"omitempty,usdate"`
	Password string `form:"password" validate:"required,min=6"`
	Confirm  string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

func TestValidateReportsEveryField(t *testing.T) {
	errs := Validate(signup{
		Username: "bad name!",
		Email:    "nope",
		Phone:    "12 34",
		Birth:    "2024-01-31",
		Password: "123",
		Confirm:  "456",
	})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"birthDate", "confirmPassword", "email", "password", "phone", "username"}, errs.Fields())
	assert.Equal(t, "Must be at least 6 characters", errs["password"])
	assert.Equal(t, "Does not match", errs["confirmPassword"])
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	errs := Validate(signup{
		Username: "ana_01",
		Email:    "ana@shop.vn",
		Phone:    "091 234 5678",
		Birth:    "01/31/2000",
		Password: "secret1",
		Confirm:  "secret1",
	})
	assert.Nil(t, errs)
}

func TestTrim(t *testing.T) {
	s := signup{Username: "  ana ", Email: "\ta@b.c\n"}
	Trim(&s)
	assert.Equal(t, "ana", s.Username)
	assert.Equal(t, "a@b.c", s.Email)

	Trim(s) // not a pointer, ignored
}

func TestErrorString(t *testing.T) {
	e := Errors{"b": "second", "a": "first"}
	assert.Equal(t, "invalid form: a: first; b: second", e.Error())
	assert.True(t, e.Has("a"))
	assert.False(t, e.Has("c"))
}

func TestDecode(t *testing.T) {
	var s signup
	Decode(url.Values{"username": {"ana"}, "confirmPassword": {"x"}, "Password": {"ignored"}}, &s)
	assert.Equal(t, "ana", s.Username)
	assert.Equal(t, "x", s.Confirm)
	assert.Empty(t, s.Password)
}
