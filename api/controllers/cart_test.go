package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/moussakone/librio-backend/api/middleware"
	cartsvc "github.com/moussakone/librio-backend/internal/cart"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
)

type stubCartService struct {
	cart       *cartsvc.Cart
	err        error
	lastUserID string
	lastItems  []cartsvc.LocalItem
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (*cartsvc.Cart, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID, listingID string) (*cartsvc.Cart, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, userID, listingID string, quantity int) (*cartsvc.Cart, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, listingID string) (*cartsvc.Cart, error) {
	s.lastUserID = userID
	return s.cart, s.err
}

func (s *stubCartService) Clear(ctx context.Context, userID string) error {
	s.lastUserID = userID
	return s.err
}

func (s *stubCartService) Replace(ctx context.Context, userID string, items []cartsvc.LocalItem) (*cartsvc.Cart, error) {
	s.lastUserID = userID
	s.lastItems = items
	return s.cart, s.err
}

func (s *stubCartService) Merge(ctx context.Context, userID string, local []cartsvc.LocalItem) (*cartsvc.Cart, error) {
	s.lastUserID = userID
	s.lastItems = local
	return s.cart, s.err
}

func authedRequest(method, target string, body string, userID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func TestCartFetchSuccess(t *testing.T) {
	service := &stubCartService{cart: &cartsvc.Cart{
		Items:       []cartsvc.Item{{ListingID: "l1", Quantity: 2, Subtotal: 3000}},
		TotalAmount: 3000,
		Count:       2,
	}}
	handler := CartFetch(service, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart", "", "buyer-1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if service.lastUserID != "buyer-1" {
		t.Fatalf("expected buyer-1, got %s", service.lastUserID)
	}

	var envelope struct {
		Data cartsvc.Cart `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalAmount != 3000 {
		t.Fatalf("unexpected total %d", envelope.Data.TotalAmount)
	}
}

func TestCartFetchMissingUserContext(t *testing.T) {
	handler := CartFetch(&stubCartService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemValidatesBody(t *testing.T) {
	handler := CartAddItem(&stubCartService{cart: &cartsvc.Cart{}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", `{"listing_id":"not-a-uuid"}`, "buyer-1"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemSuccess(t *testing.T) {
	service := &stubCartService{cart: &cartsvc.Cart{Count: 1}}
	handler := CartAddItem(service, nil)

	body := `{"listing_id":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body, "buyer-1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartAddItemOutOfStock(t *testing.T) {
	service := &stubCartService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "listing is out of stock")}
	handler := CartAddItem(service, nil)

	body := `{"listing_id":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/items", body, "buyer-1"))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCartMergePassesItems(t *testing.T) {
	service := &stubCartService{cart: &cartsvc.Cart{}}
	handler := CartMerge(service, nil)

	listingID := uuid.NewString()
	body := `{"items":[{"listing_id":"` + listingID + `","quantity":2}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/merge", body, "buyer-1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(service.lastItems) != 1 || service.lastItems[0].ListingID != listingID {
		t.Fatalf("unexpected merge items %+v", service.lastItems)
	}
}

func TestCartMergeRequiresItems(t *testing.T) {
	handler := CartMerge(&stubCartService{cart: &cartsvc.Cart{}}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart/merge", `{"items":[]}`, "buyer-1"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
