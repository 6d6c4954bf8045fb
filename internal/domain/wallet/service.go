package wallet

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/domain/state"
)

type Service struct {
	minWithdrawal int64
}

func NewService(minWithdrawal int64) *Service {
	return &Service{minWithdrawal: minWithdrawal}
}

func (s *Service) MinWithdrawal() int64 { return s.minWithdrawal }

func (s *Service) Summary(store *state.Store) state.WalletSummary {
	return state.Summarize(store.Snapshot())
}

func (s *Service) Transactions(store *state.Store, filter state.TransactionFilter) []TransactionResponse {
	txs := state.FilterTransactions(store.Transactions(), filter)
	out := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = TransactionResponseFromEntity(tx)
	}
	return out
}

// Deposit records a pending deposit; the store approves it after its delay
func (s *Service) Deposit(ctx context.Context, store *state.Store, req *DepositRequest) (*MutationResponse, error) {
	method, ok := LookupMethod(req.Method)
	if !ok {
		return nil, ErrUnknownMethod
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, ok := store.Deposit(ctx, method.Name, req.Amount, req.TrxID)
	if !ok {
		return nil, ErrTransactionRejected
	}
	log.Info().Str("transaction_id", tx.ID).Int64("amount", req.Amount).Str("method", method.ID).Msg("wallet deposit submitted")
	return s.mutationResult(store, tx), nil
}

// Withdraw debits the balance and leaves the request pending
func (s *Service) Withdraw(ctx context.Context, store *state.Store, req *WithdrawRequest) (*MutationResponse, error) {
	method, ok := LookupMethod(req.Method)
	if !ok {
		return nil, ErrUnknownMethod
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount < s.minWithdrawal {
		return nil, ErrBelowMinimum
	}
	u, ok := store.User()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	if u.Balance < req.Amount {
		return nil, ErrInsufficientFunds
	}

	tx, ok := store.Withdraw(ctx, method.Name, req.Amount)
	if !ok {
		return nil, ErrInsufficientFunds
	}
	log.Info().Str("transaction_id", tx.ID).Int64("amount", req.Amount).Str("method", method.ID).Msg("wallet withdrawal submitted")
	return s.mutationResult(store, tx), nil
}

func (s *Service) mutationResult(store *state.Store, tx state.Transaction) *MutationResponse {
	res := &MutationResponse{Transaction: TransactionResponseFromEntity(tx)}
	if u, ok := store.User(); ok {
		res.Balance = u.Balance
	}
	return res
}
