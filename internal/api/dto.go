package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billo/billo/internal/calculator"
	"github.com/billo/billo/internal/models"
	"github.com/billo/billo/internal/service"
	"github.com/billo/billo/internal/settlement"
)

// Money values are rendered as decimal strings ("16.50"), never floats.

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SuccessResponse acknowledges writes that return no resource.
type SuccessResponse struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
}

// looseString accepts a JSON string or number, as receipt extraction may
// return tax either way.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// Assignments

type AssignmentDTO struct {
	ReceiptItemID    string           `json:"receiptItemId"`
	UserID           string           `json:"userId"`
	SplitType        string           `json:"splitType,omitempty"`
	SplitValue       *decimal.Decimal `json:"splitValue,omitempty"`
	CalculatedAmount *decimal.Decimal `json:"calculatedAmount,omitempty"`
}

func (a AssignmentDTO) toInput() service.AssignmentInput {
	return service.AssignmentInput{
		ReceiptItemID:    a.ReceiptItemID,
		UserID:           a.UserID,
		SplitType:        a.SplitType,
		SplitValue:       a.SplitValue,
		CalculatedAmount: a.CalculatedAmount,
	}
}

func assignmentInputs(rows []AssignmentDTO) []service.AssignmentInput {
	in := make([]service.AssignmentInput, len(rows))
	for i, row := range rows {
		in[i] = row.toInput()
	}
	return in
}

type SaveAssignmentsRequest struct {
	Assignments []AssignmentDTO `json:"assignments"`
}

type UserSummaryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ItemSummaryDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type AssignmentViewDTO struct {
	ReceiptItemID    string           `json:"receiptItemId"`
	UserID           string           `json:"userId"`
	SplitType        string           `json:"splitType"`
	SplitValue       *decimal.Decimal `json:"splitValue"`
	CalculatedAmount decimal.Decimal  `json:"calculatedAmount"`
	User             UserSummaryDTO   `json:"user"`
	Item             ItemSummaryDTO   `json:"item"`
}

type AssignmentsResponse struct {
	Assignments []AssignmentViewDTO `json:"assignments"`
}

func toAssignmentViews(views []service.AssignmentView) AssignmentsResponse {
	out := make([]AssignmentViewDTO, len(views))
	for i, v := range views {
		out[i] = AssignmentViewDTO{
			ReceiptItemID:    v.ReceiptItemID,
			UserID:           v.UserID,
			SplitType:        string(v.SplitType),
			SplitValue:       v.SplitValue,
			CalculatedAmount: v.CalculatedAmount,
			User: UserSummaryDTO{
				ID:       v.User.ID,
				Name:     v.User.Name,
				Email:    v.User.Email,
				ImageURL: v.User.ImageURL,
			},
			Item: ItemSummaryDTO{
				ID:         v.Item.ID,
				Name:       v.Item.Name,
				TotalPrice: v.Item.TotalPrice,
			},
		}
	}
	return AssignmentsResponse{Assignments: out}
}

// Split preview

type PreviewRequest struct {
	Mode        string          `json:"mode"`
	Assignments []AssignmentDTO `json:"assignments"`
}

type PersonTotalDTO struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Subtotal string `json:"subtotal"`
	TaxShare string `json:"taxShare"`
	Total    string `json:"total"`
}

type ValidationDTO struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type PreviewResponse struct {
	Totals     []PersonTotalDTO `json:"totals"`
	Total      string           `json:"total"`
	Validation ValidationDTO    `json:"validation"`
}

func toPersonTotals(totals []calculator.PersonTotal) []PersonTotalDTO {
	out := make([]PersonTotalDTO, len(totals))
	for i, pt := range totals {
		out[i] = PersonTotalDTO{
			UserID:   pt.UserID,
			Name:     pt.Name,
			Email:    pt.Email,
			ImageURL: pt.ImageURL,
			Subtotal: pt.Subtotal.StringFixed(2),
			TaxShare: pt.TaxShare.StringFixed(2),
			Total:    pt.Total.StringFixed(2),
		}
	}
	return out
}

func toPreview(p *service.Preview) PreviewResponse {
	errs := p.Validation.Errors
	if errs == nil {
		errs = []string{}
	}
	return PreviewResponse{
		Totals:     toPersonTotals(p.Totals),
		Total:      p.Total.StringFixed(2),
		Validation: ValidationDTO{Valid: p.Validation.Valid, Errors: errs},
	}
}

// Settlements

type SettlementDTO struct {
	ID         string     `json:"id"`
	ReceiptID  string     `json:"receiptId,omitempty"`
	GroupID    string     `json:"groupId,omitempty"`
	FromUserID string     `json:"fromUserId"`
	ToUserID   string     `json:"toUserId"`
	Amount     string     `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	SettledAt  *time.Time `json:"settledAt"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func toSettlement(s *models.Settlement) SettlementDTO {
	return SettlementDTO{
		ID:         s.ID,
		ReceiptID:  s.ReceiptID,
		GroupID:    s.GroupID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount.StringFixed(2),
		Currency:   s.Currency,
		Status:     string(s.Status),
		SettledAt:  s.SettledAt,
		Notes:      s.Notes,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func toSettlements(rows []models.Settlement) []SettlementDTO {
	out := make([]SettlementDTO, len(rows))
	for i := range rows {
		out[i] = toSettlement(&rows[i])
	}
	return out
}

type SettlementsResponse struct {
	Settlements []SettlementDTO `json:"settlements"`
}

type ResplitStatusDTO struct {
	HasSettlements          bool `json:"hasSettlements"`
	HasCompletedSettlements bool `json:"hasCompletedSettlements"`
	HasPendingSettlements   bool `json:"hasPendingSettlements"`
	NeedsConfirmation       bool `json:"needsConfirmation"`
}

func toResplitStatus(st settlement.ResplitStatus) ResplitStatusDTO {
	return ResplitStatusDTO{
		HasSettlements:          st.HasSettlements,
		HasCompletedSettlements: st.HasCompletedSettlements,
		HasPendingSettlements:   st.HasPendingSettlements,
		NeedsConfirmation:       st.NeedsConfirmation(),
	}
}

type GenerateSettlementsRequest struct {
	Confirm bool `json:"confirm"`
}

type GenerateSettlementsResponse struct {
	Replaced    ResplitStatusDTO `json:"replaced"`
	Settlements []SettlementDTO  `json:"settlements"`
	Totals      []PersonTotalDTO `json:"totals"`
}

type CreateSettlementRequest struct {
	ReceiptID  string          `json:"receiptId"`
	GroupID    string          `json:"groupId"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Notes      string          `json:"notes"`
}

type UpdateSettlementRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// Receipts

type ItemRequest struct {
	Name       string           `json:"name"`
	Quantity   int              `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unitPrice"`
	TotalPrice *decimal.Decimal `json:"totalPrice"`
}

// CreateReceiptRequest accepts manual entry and the extraction shape
// ({merchantName, purchaseDate, totalAmount, tax, items}).
type CreateReceiptRequest struct {
	GroupID      string           `json:"groupId"`
	MerchantName string           `json:"merchantName"`
	PurchaseDate string           `json:"purchaseDate"`
	Currency     string           `json:"currency"`
	Tax          looseString      `json:"tax"`
	Total        *decimal.Decimal `json:"total"`
	TotalAmount  *decimal.Decimal `json:"totalAmount"`
	Source       string           `json:"source"`
	Items        []ItemRequest    `json:"items"`
}

type ItemDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type ReceiptDTO struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	GroupID      string     `json:"groupId,omitempty"`
	MerchantName string     `json:"merchantName"`
	PurchaseDate *time.Time `json:"purchaseDate"`
	Currency     string     `json:"currency"`
	Tax          string     `json:"tax"`
	Total        string     `json:"total"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	Items        []ItemDTO  `json:"items"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toReceipt(r *models.Receipt) ReceiptDTO {
	items := make([]ItemDTO, len(r.Items))
	for i, it := range r.Items {
		items[i] = ItemDTO{
			ID:         it.ID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		}
	}
	return ReceiptDTO{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		GroupID:      r.GroupID,
		MerchantName: r.MerchantName,
		PurchaseDate: r.PurchaseDate,
		Currency:     r.Currency,
		Tax:          r.Tax.StringFixed(2),
		Total:        r.Total.StringFixed(2),
		Status:       string(r.Status),
		Source:       string(r.Source),
		Items:        items,
		CreatedAt:    r.CreatedAt,
	}
}

// Groups

type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

type AddMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type MemberDTO struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl,omitempty"`
	Role     string `json:"role"`
}

type GroupDTO struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedBy string      `json:"createdBy"`
	Members   []MemberDTO `json:"members"`
	CreatedAt time.Time   `json:"createdAt"`
}

func toGroup(g *models.Group) GroupDTO {
	members := make([]MemberDTO, len(g.Members))
	for i, m := range g.Members {
		members[i] = MemberDTO{
			UserID:   m.UserID,
			Name:     m.Name,
			Email:    m.Email,
			ImageURL: m.ImageURL,
			Role:     string(m.Role),
		}
	}
	return GroupDTO{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}

// Users

type PreferencesDTO struct {
	SettlementCreated bool `json:"settlementCreated"`
	PaymentConfirmed  bool `json:"paymentConfirmed"`
	PaymentUnmarked   bool `json:"paymentUnmarked"`
}

type UpdatePreferencesRequest struct {
	SettlementCreated *bool `json:"settlementCreated"`
	PaymentConfirmed  *bool `json:"paymentConfirmed"`
	PaymentUnmarked   *bool `json:"paymentUnmarked"`
}

type UserDTO struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Preferences PreferencesDTO `json:"preferences"`
}

func toUser(u *models.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		ImageURL: u.ImageURL,
		Preferences: PreferencesDTO{
			SettlementCreated: u.Preferences.SettlementCreated,
			PaymentConfirmed:  u.Preferences.PaymentConfirmed,
			PaymentUnmarked:   u.Preferences.PaymentUnmarked,
		},
	}
}
