package domain

import "time"

// EnhancementStatus is the lifecycle state of one enhancement attempt.
type EnhancementStatus string

const (
	EnhancementProcessing EnhancementStatus = "processing"
	EnhancementCompleted  EnhancementStatus = "completed"
	EnhancementFailed     EnhancementStatus = "failed"
)

// EnhancementStep is the persisted cursor of the orchestration pipeline.
// The row is created at StepCreated; each later step overwrites the cursor,
// so a crash mid-flow leaves a record of how far the attempt got and the
// reconciler can fail it instead of leaving silent partial state.
type EnhancementStep string

const (
	StepCreated   EnhancementStep = "created"
	StepEnhanced  EnhancementStep = "enhanced"
	StepStored    EnhancementStep = "stored"
	StepCompleted EnhancementStep = "completed"
)

// PhotoEnhancement records one upload/enhance attempt.
type PhotoEnhancement struct {
	ID          string
	UserID      string
	OriginalURL string
	EnhancedURL string
	Status      EnhancementStatus
	Step        EnhancementStep
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
