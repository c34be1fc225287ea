package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/oshocks/bikeshop/pkg/submit"
)

// Product is a created product as echoed by the backend.
type Product struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Status string `json:"status,omitempty"`
}

// ProductService covers the seller's catalogue.
type ProductService struct {
	c *Client
}

// Products returns the product service.
func (c *Client) Products() *ProductService {
	return &ProductService{c: c}
}

// Create submits a new product, normally a multipart body with variant images.
func (s *ProductService) Create(ctx context.Context, body submit.Payload) (*Product, error) {
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodPost, s.c.endpoints.Products, body, &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		Product *Product `json:"product"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Product != nil {
		return wrapped.Product, nil
	}
	var p Product
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, ErrBadResponse
		}
	}
	return &p, nil
}

// Application is a submitted seller or delivery agent application.
type Application struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// ApplicationService covers role applications.
type ApplicationService struct {
	c *Client
}

// Applications returns the application service.
func (c *Client) Applications() *ApplicationService {
	return &ApplicationService{c: c}
}

// ApplySeller submits a seller application.
func (s *ApplicationService) ApplySeller(ctx context.Context, body submit.Payload) (*Application, error) {
	return s.apply(ctx, s.c.endpoints.SellerApply, body)
}

// ApplyDeliveryAgent submits a delivery agent application.
func (s *ApplicationService) ApplyDeliveryAgent(ctx context.Context, body submit.Payload) (*Application, error) {
	return s.apply(ctx, s.c.endpoints.DeliveryApply, body)
}

func (s *ApplicationService) apply(ctx context.Context, path string, body submit.Payload) (*Application, error) {
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodPost, path, body, &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		Application *Application `json:"application"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Application != nil {
		return wrapped.Application, nil
	}
	var a Application
	if len(raw) > 0 {
		json.Unmarshal(raw, &a)
	}
	return &a, nil
}

// Address is a delivery address in the user's address book.
type Address struct {
	ID        int64  `json:"id,omitempty"`
	Label     string `json:"label"`
	Recipient string `json:"recipient_name"`
	Phone     string `json:"phone"`
	County    string `json:"county"`
	Town      string `json:"town"`
	Street    string `json:"street_address"`
	IsDefault bool   `json:"is_default"`
}

// AddressService covers the address book.
type AddressService struct {
	c *Client
}

// Addresses returns the address book service.
func (c *Client) Addresses() *AddressService {
	return &AddressService{c: c}
}

// List returns the saved addresses.
func (s *AddressService) List(ctx context.Context) ([]Address, error) {
	var raw json.RawMessage
	if err := s.c.Do(ctx, http.MethodGet, s.c.endpoints.Addresses, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Address](raw, "addresses")
}

// Create saves a new address.
func (s *AddressService) Create(ctx context.Context, a Address) (*Address, error) {
	return s.write(ctx, http.MethodPost, s.c.endpoints.Addresses, a)
}

// Update replaces an address.
func (s *AddressService) Update(ctx context.Context, id int64, a Address) (*Address, error) {
	a.ID = 0
	return s.write(ctx, http.MethodPut, expand(s.c.endpoints.Address, id), a)
}

// Delete removes an address.
func (s *AddressService) Delete(ctx context.Context, id int64) error {
	return s.c.Do(ctx, http.MethodDelete, expand(s.c.endpoints.Address, id), nil, nil)
}

func (s *AddressService) write(ctx context.Context, method, path string, a Address) (*Address, error) {
	body := submit.JSON{
		"label":          a.Label,
		"recipient_name": a.Recipient,
		"phone":          a.Phone,
		"county":         a.County,
		"town":           a.Town,
		"street_address": a.Street,
		"is_default":     a.IsDefault,
	}
	var raw json.RawMessage
	if err := s.c.Do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		Address *Address `json:"address"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Address != nil {
		return wrapped.Address, nil
	}
	out := a
	if len(raw) > 0 {
		json.Unmarshal(raw, &out)
	}
	return &out, nil
}
