package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

type signup struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=customer seller"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(signup{Username: "ab", Email: "nope", Role: "admin"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	for _, field := range []string{"username", "email", "role"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details, got %v", field, details)
		}
	}
	if !strings.Contains(typed.Message(), "email must be a valid email") {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestStructAcceptsValid(t *testing.T) {
	if err := Struct(signup{Username: "omega", Email: "o@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"omega","email":"o@example.com","extra":1}`))
	var dest signup
	if err := DecodeJSONBody(req, &dest); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"omega","email":"o@example.com"}`))
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Username != "omega" {
		t.Fatalf("unexpected decode %+v", dest)
	}
}
