package wallet

import (
	"time"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/pkg/validator"
)

func init() {
	validator.RegisterEnum("payment_method", methodIDs()...)
}

type DepositRequest struct {
	Method string `json:"method" validate:"required,payment_method"`
	Amount int64  `json:"amount" validate:"gt=0,lte=1000000000"`
	TrxID  string `json:"trx_id" validate:"required,max=100"`
}

type WithdrawRequest struct {
	Method string `json:"method" validate:"required,payment_method"`
	Amount int64  `json:"amount" validate:"gt=0,lte=1000000000"`
}

type TransactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func TransactionResponseFromEntity(tx state.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Status:      string(tx.Status),
		Description: tx.Description,
		Date:        tx.Date,
	}
}

type MutationResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     int64               `json:"balance"`
}

type MethodsResponse struct {
	Methods       []PaymentMethod `json:"methods"`
	MinWithdrawal int64           `json:"min_withdrawal"`
}
