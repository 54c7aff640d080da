// Package api is the client side of the shop REST contract: wire types, a
// breaker-guarded HTTP client and its error taxonomy.
//
// Importing api switches shopspring/decimal to encode as bare JSON numbers
// for the whole process, since both ends of the contract exchange money that
// way. Binaries that link api must not rely on quoted decimals elsewhere.
package api

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	OriginPrice decimal.Decimal `json:"origin_price"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
	Content     string          `json:"content"`
	IsEnabled   int             `json:"is_enabled"`
	ImageURL    string          `json:"imageUrl"`
	ImagesURL   []string        `json:"imagesUrl,omitempty"`
}

// CartLine is one server-tracked cart row. Total and FinalTotal are computed
// by the server and must never be recomputed locally.
type CartLine struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Qty        int             `json:"qty"`
	Total      decimal.Decimal `json:"total"`
	FinalTotal decimal.Decimal `json:"final_total"`
	Product    Product         `json:"product"`
}

type Cart struct {
	Carts      []CartLine      `json:"carts"`
	Total      decimal.Decimal `json:"total"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

type CartItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Tel     string `json:"tel"`
	Address string `json:"address"`
}

type OrderRequest struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

type OrderResult struct {
	Success  bool            `json:"success"`
	Message  Message         `json:"message,omitempty"`
	Total    decimal.Decimal `json:"total"`
	CreateAt int64           `json:"create_at"`
	OrderID  string          `json:"orderId"`
}

type Pagination struct {
	TotalPages  int    `json:"total_pages"`
	CurrentPage int    `json:"current_page"`
	HasPre      bool   `json:"has_pre"`
	HasNext     bool   `json:"has_next"`
	Category    string `json:"category"`
}

// Envelope wraps request bodies as {"data": ...}.
type Envelope[T any] struct {
	Data T `json:"data"`
}

type ProductsResponse struct {
	Success    bool       `json:"success"`
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
	Message    Message    `json:"message,omitempty"`
}

type CartResponse struct {
	Success bool    `json:"success"`
	Data    Cart    `json:"data"`
	Message Message `json:"message,omitempty"`
}

type StatusResponse struct {
	Success bool    `json:"success"`
	Message Message `json:"message,omitempty"`
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignInResponse struct {
	Success bool    `json:"success"`
	Message Message `json:"message,omitempty"`
	UID     string  `json:"uid"`
	Token   string  `json:"token"`
	Expired int64   `json:"expired"`
}

// Message is the human readable "message" field. The server sends either a
// string or a list of strings.
type Message string

func (m *Message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Message(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*m = Message(strings.Join(list, "; "))
	return nil
}
