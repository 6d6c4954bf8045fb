package state

import "time"

type TransactionType string

const (
	TransactionTypeEarning  TransactionType = "earning"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeExpense  TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeEarning, TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeExpense:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusApproved  TransactionStatus = "approved"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusApproved:
		return true
	}
	return false
}

type TaskKind string

const (
	TaskKindTask    TaskKind = "task"
	TaskKindSurvey  TaskKind = "survey"
	TaskKindVideo   TaskKind = "video"
	TaskKindWebsite TaskKind = "website"
)

func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindTask, TaskKindSurvey, TaskKindVideo, TaskKindWebsite:
		return true
	}
	return false
}

// User is the profile of whoever is logged in on this device
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Balance          int64     `json:"balance"`
	TotalEarnings    int64     `json:"totalEarnings"`
	CompletedTasks   int       `json:"completedTasks"`
	JoinedAt         time.Time `json:"joinedAt"`
	CompletedTaskIDs []string  `json:"completedTaskIds"`
}

// HasCompleted reports whether taskID is in the completed set
func (u *User) HasCompleted(taskID string) bool {
	for _, id := range u.CompletedTaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// Transaction is an immutable ledger entry; only a deposit's status ever changes
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Amount      int64             `json:"amount"`
	Date        time.Time         `json:"date"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
}

// Task is a unit of paid work listed in one of the catalogs
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Reward      int64    `json:"reward" yaml:"reward"`
	Link        string   `json:"link" yaml:"link"`
	Type        TaskKind `json:"type" yaml:"type"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Duration    int      `json:"duration,omitempty" yaml:"duration,omitempty"` // seconds
}

// NewTask is a Task before the store assigns its id
type NewTask struct {
	Title       string
	Description string
	Reward      int64
	Link        string
	Type        TaskKind
	Category    string
	Duration    int
}

// AppState is the whole persisted aggregate
type AppState struct {
	User         *User         `json:"user"`
	Transactions []Transaction `json:"transactions"`
	Tasks        []Task        `json:"tasks"`
	AvailableAds []Task        `json:"availableAds"`
}
