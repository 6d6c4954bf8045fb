package state

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Deposit records a pending deposit and schedules its approval. A user is not
// required; the balance is credited on approval only if someone is logged in then.
func (s *Store) Deposit(ctx context.Context, method string, amount int64, trxID string) (Transaction, bool) {
	var tx Transaction
	ok := s.mutate(ctx, "deposit", func() bool {
		if amount <= 0 {
			return false
		}
		tx = s.newTransaction(TransactionTypeDeposit, TransactionStatusPending, amount,
			fmt.Sprintf("Deposit via %s (TRX: %s)", method, trxID))
		s.prependLocked(tx)
		return true
	})
	if !ok {
		return Transaction{}, false
	}

	s.scheduleApproval(tx.ID, s.approvalDelay)
	s.log.Info().Str("transaction_id", tx.ID).Int64("amount", amount).Str("method", method).Msg("deposit recorded")
	return tx, true
}

func (s *Store) scheduleApproval(txID string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	if !s.approvals.Schedule(txID, delay, func() { s.approveDeposit(txID) }) {
		s.log.Warn().Str("transaction_id", txID).Msg("store closed, deposit approval not scheduled")
	}
}

// approveDeposit flips the identified deposit to approved and credits the
// current user. Deposits that are gone or no longer pending are left alone.
func (s *Store) approveDeposit(txID string) {
	s.mu.Lock()
	idx := -1
	for i, tx := range s.state.Transactions {
		if tx.ID == txID {
			idx = i
			break
		}
	}
	if idx < 0 || s.state.Transactions[idx].Type != TransactionTypeDeposit ||
		s.state.Transactions[idx].Status != TransactionStatusPending {
		s.mu.Unlock()
		s.log.Debug().Str("transaction_id", txID).Msg("deposit approval skipped")
		return
	}

	tx := &s.state.Transactions[idx]
	tx.Status = TransactionStatusApproved
	credited := s.state.User != nil && tx.Amount <= math.MaxInt64-s.state.User.Balance
	if credited {
		s.state.User.Balance += tx.Amount
	}
	s.persistLocked(context.Background())
	ev := s.eventLocked(EventDepositApproved, "deposit_approved", txID)
	amount := tx.Amount
	s.mu.Unlock()

	s.log.Info().
		Str("transaction_id", txID).
		Int64("amount", amount).
		Bool("credited", credited).
		Msg("deposit approved")
	s.emit(ev)
}

// resumePendingDeposits reschedules approvals for deposits still pending in a
// rehydrated snapshot, keeping whatever remains of their original delay.
func (s *Store) resumePendingDeposits() {
	now := s.now()
	for _, tx := range s.state.Transactions {
		if tx.Type != TransactionTypeDeposit || tx.Status != TransactionStatusPending {
			continue
		}
		remaining := s.approvalDelay - now.Sub(tx.Date)
		s.scheduleApproval(tx.ID, remaining)
		s.log.Debug().Str("transaction_id", tx.ID).Dur("remaining", remaining).Msg("resumed deposit approval")
	}
}

// CancelDepositApproval drops the scheduled approval for txID. The deposit
// itself stays pending.
func (s *Store) CancelDepositApproval(txID string) bool {
	return s.approvals.Cancel(txID)
}

// PendingApprovals lists the transaction ids with an approval still scheduled
func (s *Store) PendingApprovals() []string {
	return s.approvals.Pending()
}
