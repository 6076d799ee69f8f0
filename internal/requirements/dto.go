package requirements

import "time"

// TaskResponse is the API shape of an analysis task.
type TaskResponse struct {
	TaskID      string               `json:"task_id"`
	DocumentID  string               `json:"document_id"`
	Kind        string               `json:"kind"`
	AIProvider  string               `json:"ai_provider"`
	Status      string               `json:"status"`
	Progress    int                  `json:"progress"`
	Analysis    *RequirementAnalysis `json:"analysis,omitempty"`
	TestCases   *TestCaseSuite       `json:"test_cases,omitempty"`
	Summary     string               `json:"summary,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

func toResponse(task Task) TaskResponse {
	return TaskResponse{
		TaskID:      task.ID,
		DocumentID:  task.DocumentID,
		Kind:        task.Kind,
		AIProvider:  task.Provider,
		Status:      task.Status,
		Progress:    task.Progress,
		Analysis:    task.Analysis,
		TestCases:   task.Suite,
		Summary:     task.Summary,
		CreatedAt:   task.CreatedAt,
		CompletedAt: task.CompletedAt,
	}
}
