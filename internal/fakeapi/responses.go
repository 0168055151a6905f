package fakeapi

import (
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/maison-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

type detailBody struct {
	Detail string `json:"detail"`
}

type fieldDetail struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

type fieldDetailBody struct {
	Detail []fieldDetail `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailBody{Detail: detail})
}

// writeValidation answers 422 with one entry per invalid field.
func writeValidation(w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	body := fieldDetailBody{}
	if typed != nil {
		if fields, ok := typed.Details().(map[string]string); ok {
			for field, msg := range fields {
				body.Detail = append(body.Detail, fieldDetail{Loc: []string{"body", field}, Msg: field + " " + msg})
			}
		}
	}
	if len(body.Detail) == 0 {
		body.Detail = append(body.Detail, fieldDetail{Loc: []string{"body"}, Msg: pkgerrors.UserMessage(err)})
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
}

type userBody struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"full_name,omitempty"`
	Role       string `json:"role"`
	SellerID   *int   `json:"seller_id,omitempty"`
	CustomerID *int   `json:"customer_id,omitempty"`
}

func userOf(acc *account) userBody {
	out := userBody{
		ID:       acc.id,
		Username: acc.username,
		Email:    acc.email,
		FullName: acc.fullName,
		Role:     acc.role.String(),
	}
	id := acc.id
	if acc.role == enums.RoleSeller {
		out.SellerID = &id
	} else {
		out.CustomerID = &id
	}
	return out
}

type authBody struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userBody `json:"user"`
}

type productBody struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	ImageURL        string          `json:"image_url,omitempty"`
	Material        string          `json:"material,omitempty"`
	CaseSize        string          `json:"case_size,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

func productOf(p Product) productBody {
	return productBody{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		ImageURL:        p.ImageURL,
		Material:        p.Material,
		CaseSize:        p.CaseSize,
		ReferenceNumber: p.ReferenceNumber,
	}
}

type nestedItem struct {
	ID        int         `json:"id"`
	ProductID int         `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Product   productBody `json:"product"`
}

// flatItem carries the product fields on the item itself, with the price
// as a JSON number.
type flatItem struct {
	ID              int     `json:"id"`
	ProductID       int     `json:"product_id"`
	Quantity        int     `json:"quantity"`
	ProductName     string  `json:"product_name"`
	Price           float64 `json:"price"`
	ImageURL        string  `json:"image_url,omitempty"`
	Material        string  `json:"material,omitempty"`
	CaseSize        string  `json:"case_size,omitempty"`
	ReferenceNumber string  `json:"reference_number,omitempty"`
}

type flatCart struct {
	Items       []flatItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	TotalItems  int        `json:"total_items"`
}

type nestedCart struct {
	Items     []nestedItem    `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type nestedCartBody struct {
	Message string     `json:"message,omitempty"`
	Cart    nestedCart `json:"cart"`
}

type messageBody struct {
	Message string `json:"message"`
}

type wishItem struct {
	ID        int         `json:"id"`
	ProductID int         `json:"product_id"`
	Product   productBody `json:"product"`
}

type wishlistBody struct {
	Items []wishItem `json:"items"`
	Count int        `json:"count"`
}
