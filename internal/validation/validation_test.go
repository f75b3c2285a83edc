package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCheckoutRequest_Valid(t *testing.T) {
	v := New()

	req := CheckoutRequest{ItemID: "42", BuyerID: "user-7", BuyerEmail: "jane@example.com"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCheckoutRequest_BlankItem(t *testing.T) {
	v := New()

	req := CheckoutRequest{ItemID: "   ", BuyerID: "user-7", BuyerEmail: "jane@example.com"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected notblank error for whitespace item id, got nil")
	}
}

func TestCheckoutRequest_BadEmail(t *testing.T) {
	v := New()

	req := CheckoutRequest{ItemID: "42", BuyerID: "user-7", BuyerEmail: "not-an-email"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected email validation error, got nil")
	}
}

func TestBindAndValidate_WritesFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/create-checkout-session",
		strings.NewReader(`{"itemId":"42","buyerEmail":"jane@example.com"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req CheckoutRequest
	if err := BindAndValidate(c, &req, New()); err == nil {
		t.Fatal("expected error for missing buyerId")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"buyerId":"required"`) {
		t.Fatalf("expected buyerId field error, got %s", body)
	}
}

func TestBindAndValidate_InvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(`{`))

	var req CheckoutRequest
	if err := BindAndValidate(c, &req, New()); err == nil {
		t.Fatal("expected bind error")
	}
	if !strings.Contains(w.Body.String(), "invalid_request_body") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
