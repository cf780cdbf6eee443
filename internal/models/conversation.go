package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ConversationFlow string

const (
	FlowAddProduct   ConversationFlow = "add_product"
	FlowCartQuantity ConversationFlow = "cart_quantity"
)

type ConversationStep string

const (
	StepName     ConversationStep = "name"
	StepPrice    ConversationStep = "price"
	StepStock    ConversationStep = "stock"
	StepDetails  ConversationStep = "details"
	StepShipping ConversationStep = "shipping"
	StepQuantity ConversationStep = "quantity"
)

// Conversation est l'état d'un échange guidé en cours pour un chat.
// Il expire après une période d'inactivité.
type Conversation struct {
	ChatID    int64            `json:"chat_id"`
	Flow      ConversationFlow `json:"flow"`
	Step      ConversationStep `json:"step"`
	Draft     ProductDraft     `json:"draft"`
	ProductID int64            `json:"product_id,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type ProductDraft struct {
	Name    string          `json:"name,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
	Details string          `json:"details,omitempty"`
}
