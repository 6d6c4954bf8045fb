package task

import (
	"context"

	"github.com/adspredia/adspredia-api/internal/domain/state"
)

// Service applies the task screens' checks before calling the store
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// List returns the filtered union of both catalogs with per-user completion flags
func (s *Service) List(store *state.Store, filter state.TaskFilter) []TaskResponse {
	tasks := state.FilterTasks(store.AllTasks(), filter)
	u, _ := store.User()

	items := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = TaskResponseFromEntity(t, u.HasCompleted(t.ID))
	}
	return items
}

func (s *Service) Categories(store *state.Store, kind state.TaskKind) []string {
	return state.Categories(store.AllTasks(), kind)
}

func (s *Service) Get(store *state.Store, id string) (TaskResponse, error) {
	t, ok := store.FindTask(id)
	if !ok {
		return TaskResponse{}, ErrTaskNotFound
	}
	u, _ := store.User()
	return TaskResponseFromEntity(t, u.HasCompleted(id)), nil
}

// Create lists a new task paid for from the user's balance
func (s *Service) Create(ctx context.Context, store *state.Store, req *CreateTaskRequest) (*CreateResponse, error) {
	u, ok := store.User()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	if u.Balance < req.Reward {
		return nil, ErrInsufficientBalance
	}

	created, ok := store.CreateTask(ctx, req.toNewTask())
	if !ok {
		return nil, ErrInsufficientBalance
	}

	u, _ = store.User()
	return &CreateResponse{Task: TaskResponseFromEntity(created, false), Balance: u.Balance}, nil
}

// Complete credits the task reward once
func (s *Service) Complete(ctx context.Context, store *state.Store, id string) (*CompleteResponse, error) {
	t, ok := store.FindTask(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	u, ok := store.User()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	if u.HasCompleted(id) {
		return nil, ErrAlreadyCompleted
	}

	if !store.CompleteTask(ctx, id) {
		return nil, ErrAlreadyCompleted
	}

	u, _ = store.User()
	return &CompleteResponse{TaskID: id, Reward: t.Reward, Balance: u.Balance}, nil
}
