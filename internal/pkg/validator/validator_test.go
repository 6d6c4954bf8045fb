package validator

import "testing"

type withdrawForm struct {
	Method string `json:"method" validate:"required,test_method"`
	Amount int64  `json:"amount" validate:"gte=500"`
}

func TestValidateEnumAndRange(t *testing.T) {
	RegisterEnum("test_method", "Payeer", "Bank Transfer")

	if errs := Validate(&withdrawForm{Method: "Payeer", Amount: 500}); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}

	errs := Validate(&withdrawForm{Method: "Cash", Amount: 10})
	if errs["method"] != "Must be one of: Payeer, Bank Transfer" {
		t.Fatalf("unexpected method error: %q", errs["method"])
	}
	if errs["amount"] != "Value must be at least 500" {
		t.Fatalf("unexpected amount error: %q", errs["amount"])
	}
}

func TestValidateRequiredUsesJSONNames(t *testing.T) {
	errs := Validate(&withdrawForm{Amount: 600})
	if _, ok := errs["method"]; !ok {
		t.Fatalf("expected error keyed by json name, got %v", errs)
	}
}
