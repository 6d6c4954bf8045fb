package state

import (
	"sort"
	"strings"
)

type SortOption string

const (
	SortNewest        SortOption = "newest"
	SortRewardHigh    SortOption = "reward-high"
	SortRewardLow     SortOption = "reward-low"
	SortDurationShort SortOption = "duration-short"
	SortDurationLong  SortOption = "duration-long"
)

func (o SortOption) Valid() bool {
	switch o {
	case SortNewest, SortRewardHigh, SortRewardLow, SortDurationShort, SortDurationLong:
		return true
	}
	return false
}

// CategoryAll matches every task
const CategoryAll = "All"

// TaskFilter narrows a catalog the way the task browsing screens do.
// Zero fields match everything.
type TaskFilter struct {
	Type      TaskKind
	Query     string
	MinReward int64
	Category  string
	Sort      SortOption
}

// FilterTasks returns the matching tasks in the requested order. The input is not modified.
func FilterTasks(tasks []Task, f TaskFilter) []Task {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		if t.Reward < f.MinReward {
			continue
		}
		if f.Category != "" && f.Category != CategoryAll && t.Category != f.Category {
			continue
		}
		out = append(out, t)
	}

	switch f.Sort {
	case SortRewardHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Reward > out[j].Reward })
	case SortRewardLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Reward < out[j].Reward })
	case SortDurationShort:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Duration < out[j].Duration })
	case SortDurationLong:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Duration > out[j].Duration })
	}
	return out
}

// Categories lists "All" followed by the distinct categories of kind, in catalog order
func Categories(tasks []Task, kind TaskKind) []string {
	out := []string{CategoryAll}
	seen := map[string]bool{}
	for _, t := range tasks {
		if kind != "" && t.Type != kind {
			continue
		}
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}

type WalletSummary struct {
	Balance            int64 `json:"balance"`
	TotalEarnings      int64 `json:"total_earnings"`
	TotalSpent         int64 `json:"total_spent"`
	TotalWithdrawn     int64 `json:"total_withdrawn"`
	PendingWithdrawals int   `json:"pending_withdrawals"`
	PendingDeposits    int   `json:"pending_deposits"`
}

// Summarize computes the wallet header figures. Only approved withdrawals count
// as withdrawn.
func Summarize(s AppState) WalletSummary {
	var sum WalletSummary
	if s.User != nil {
		sum.Balance = s.User.Balance
		sum.TotalEarnings = s.User.TotalEarnings
	}
	for _, tx := range s.Transactions {
		switch tx.Type {
		case TransactionTypeExpense:
			sum.TotalSpent += tx.Amount
		case TransactionTypeWithdraw:
			if tx.Status == TransactionStatusApproved {
				sum.TotalWithdrawn += tx.Amount
			}
			if tx.Status == TransactionStatusPending {
				sum.PendingWithdrawals++
			}
		case TransactionTypeDeposit:
			if tx.Status == TransactionStatusPending {
				sum.PendingDeposits++
			}
		}
	}
	return sum
}

// RecentLimit is how many transactions the dashboard shows
const RecentLimit = 5

type DashboardStats struct {
	Balance            int64         `json:"balance"`
	TotalEarnings      int64         `json:"total_earnings"`
	CompletedTasks     int           `json:"completed_tasks"`
	PendingWithdrawals int           `json:"pending_withdrawals"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

func Dashboard(s AppState) DashboardStats {
	stats := DashboardStats{RecentTransactions: []Transaction{}}
	if s.User != nil {
		stats.Balance = s.User.Balance
		stats.TotalEarnings = s.User.TotalEarnings
		stats.CompletedTasks = s.User.CompletedTasks
	}
	for i, tx := range s.Transactions {
		if i < RecentLimit {
			stats.RecentTransactions = append(stats.RecentTransactions, tx)
		}
		if tx.Type == TransactionTypeWithdraw && tx.Status == TransactionStatusPending {
			stats.PendingWithdrawals++
		}
	}
	return stats
}

// TransactionFilter selects ledger entries for the wallet history
type TransactionFilter struct {
	Type   TransactionType
	Status TransactionStatus
	Limit  int
}

func FilterTransactions(txs []Transaction, f TransactionFilter) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		out = append(out, tx)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
