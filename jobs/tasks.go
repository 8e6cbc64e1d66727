package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcomeEmail is the task type for the post-signup welcome email.
	TaskTypeWelcomeEmail = "mail:welcome"
)

// WelcomeEmailPayload describes the information required to greet a new
// identity. It never carries credentials.
type WelcomeEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcomeEmail, data), nil
}

// HandleWelcomeEmailTask processes TaskTypeWelcomeEmail tasks.
func HandleWelcomeEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder delivery: wire an SMTP relay once one is provisioned.
	fmt.Printf("[jobs] welcome email to %s\n", payload.Email)
	return nil
}
