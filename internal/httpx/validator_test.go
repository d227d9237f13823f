package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signupForm struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		details := ValidateStruct(signupForm{Name: "Ayesha", Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret1"})
		assert.Empty(t, details)
	})

	t.Run("reports json field names", func(t *testing.T) {
		details := ValidateStruct(signupForm{Email: "nope", Password: "123", ConfirmPassword: "456"})
		fields := FieldErrors(details)

		assert.Equal(t, "name is required", fields["name"])
		assert.Equal(t, "email must be a valid email address", fields["email"])
		assert.Equal(t, "password must be at least 6 characters", fields["password"])
		assert.Equal(t, "confirmPassword does not match", fields["confirmPassword"])
	})
}

type imageForm struct {
	Image string `form:"image" validate:"omitempty,url_or_path"`
}

func TestValidateStruct_URLOrPath(t *testing.T) {
	for _, ok := range []string{"", "/static/img/the-river-remembers.jpg", "https://cdn.example.com/a.jpg", "http://localhost:3000/x.png"} {
		assert.Empty(t, ValidateStruct(imageForm{Image: ok}), ok)
	}
	for _, bad := range []string{"cover.jpg", "//evil.example/a.jpg", "javascript:alert(1)", "ftp://host/a.jpg", "/with space.jpg"} {
		fields := FieldErrors(ValidateStruct(imageForm{Image: bad}))
		assert.Equal(t, "image must be a URL or a path starting with /", fields["image"], bad)
	}
}
