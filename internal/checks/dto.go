package checks

import "time"

// TaskResponse is the outward-facing representation of a check task.
type TaskResponse struct {
	TaskID       string                     `json:"task_id"`
	DocumentID   string                     `json:"document_id"`
	Dimensions   []string                   `json:"dimensions"`
	AIProvider   string                     `json:"ai_provider"`
	Status       string                     `json:"status"`
	Progress     int                        `json:"progress"`
	Results      map[string]DimensionResult `json:"results,omitempty"`
	OverallScore *int                       `json:"overall_score,omitempty"`
	Summary      string                     `json:"summary,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	CompletedAt  *time.Time                 `json:"completed_at,omitempty"`
}

func toResponse(task Task) TaskResponse {
	return TaskResponse{
		TaskID:       task.ID,
		DocumentID:   task.DocumentID,
		Dimensions:   task.Dimensions,
		AIProvider:   task.Provider,
		Status:       task.Status,
		Progress:     task.Progress,
		Results:      task.Results,
		OverallScore: task.OverallScore,
		Summary:      task.Summary,
		CreatedAt:    task.CreatedAt,
		CompletedAt:  task.CompletedAt,
	}
}
