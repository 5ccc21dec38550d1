package validator

import "testing"

type sample struct {
	Name   string   `json:"name" validate:"required,max=10,role_name"`
	Email  string   `json:"email" validate:"required,email"`
	Roles  []string `json:"role_ids" validate:"min=1,dive,uuid_required"`
	Secret string   `json:"-" validate:"required"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	errs := ValidateStruct(&sample{Name: "bad name", Email: "nope", Roles: []string{"x"}})
	got := map[string]string{}
	for _, e := range errs {
		got[e.FailedField] = e.Tag
	}
	want := map[string]string{
		"name":        "role_name",
		"email":       "email",
		"role_ids[0]": "uuid_required",
		"Secret":      "required",
	}
	for field, tag := range want {
		if got[field] != tag {
			t.Errorf("field %s: tag = %q, want %q (all: %v)", field, got[field], tag, got)
		}
	}
}

func TestValidateStructPasses(t *testing.T) {
	ok := &sample{
		Name:   "CASHIER_2",
		Email:  "a@example.com",
		Roles:  []string{"0b5a3f6e-8f5e-4a8e-9a53-2f0cf0d8e2a1"},
		Secret: "x",
	}
	if errs := ValidateStruct(ok); len(errs) != 0 {
		t.Errorf("unexpected errors: %+v", errs[0])
	}
}

func TestValidRoleName(t *testing.T) {
	tests := map[string]bool{
		"ADMIN":       true,
		"SHIFT_LEAD2": true,
		"":            false,
		"2ND_SHIFT":   false,
		"SHIFT LEAD":  false,
		"SHIFT-LEAD":  false,
		"cashier":     false,
		"_HIDDEN":     false,
	}
	for name, want := range tests {
		if got := ValidRoleName(name); got != want {
			t.Errorf("ValidRoleName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestMessage(t *testing.T) {
	if m := Message(&ErrorResponse{Tag: "max", Value: "50"}); m != "must be at most 50 characters" {
		t.Errorf("Message = %q", m)
	}
}

func TestMessageMinDependsOnKind(t *testing.T) {
	type input struct {
		Password string   `json:"password" validate:"min=6"`
		Roles    []string `json:"role_ids" validate:"min=1"`
	}
	got := map[string]string{}
	for _, e := range ValidateStruct(&input{Password: "abc"}) {
		got[e.FailedField] = Message(e)
	}
	if got["password"] != "must be at least 6 characters" {
		t.Errorf("password message = %q", got["password"])
	}
	if got["role_ids"] != "must have at least 1 entries" {
		t.Errorf("role_ids message = %q", got["role_ids"])
	}
}
