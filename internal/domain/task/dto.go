package task

import (
	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/pkg/validator"
)

func init() {
	validator.RegisterEnum("creatable_task_kind", string(state.TaskKindTask), string(state.TaskKindWebsite))
}

// CreateTaskRequest for POST /tasks. Only social tasks and website visits can be
// created; a website visit needs a duration, other kinds never carry one.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"required,max=1000"`
	Reward      int64  `json:"reward" validate:"gt=0,lte=1000000"`
	Link        string `json:"link" validate:"required,url"`
	Type        string `json:"type" validate:"required,creatable_task_kind"`
	Category    string `json:"category" validate:"omitempty,max=50"`
	Duration    int    `json:"duration" validate:"required_if=Type website,gte=0,lte=3600"`
}

func (r *CreateTaskRequest) toNewTask() state.NewTask {
	return state.NewTask{
		Title:       r.Title,
		Description: r.Description,
		Reward:      r.Reward,
		Link:        r.Link,
		Type:        state.TaskKind(r.Type),
		Category:    r.Category,
		Duration:    r.Duration,
	}
}

// TaskResponse is a catalog entry as seen by the current user
type TaskResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
	Link        string `json:"link"`
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	Completed   bool   `json:"completed"`
}

func TaskResponseFromEntity(t state.Task, completed bool) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Reward:      t.Reward,
		Link:        t.Link,
		Type:        string(t.Type),
		Category:    t.Category,
		Duration:    t.Duration,
		Completed:   completed,
	}
}

// CompleteResponse returned by POST /tasks/{id}/complete
type CompleteResponse struct {
	TaskID  string `json:"task_id"`
	Reward  int64  `json:"reward"`
	Balance int64  `json:"balance"`
}

// CreateResponse returned by POST /tasks
type CreateResponse struct {
	Task    TaskResponse `json:"task"`
	Balance int64        `json:"balance"`
}
