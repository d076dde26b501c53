package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task. A task is created as processing
// and transitions exactly once, to success or failed. Both are terminal for
// that task instance; retry replaces a failed task with a new one.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Input description fallbacks used when a submission carried no text.
const (
	DescAudioInput   = "[语音输入]"
	DescImageInput   = "[图片输入]"
	DescUnknownInput = "未知输入"
)

// Extraction is the success payload of a task.
type Extraction struct {
	Listing     Listing `json:"listing"`
	IsPublished bool    `json:"isPublished"`
	IsTemplate  bool    `json:"isTemplate"`
}

// Failure is the failed payload of a task. Only the source text is durable;
// image and audio attachments live in the session-only media table and are
// gone after a restart, so a retried task may fall back to text-only input.
type Failure struct {
	SourceText string `json:"sourceText"`
	Message    string `json:"errorMessage"`
}

// Task is one unit of work in the task log. The status determines which
// payload is populated: processing has neither, success has Result, failed
// has Fail. The constructors below are the only intended way to build one.
type Task struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`

	Result *Extraction `json:"extractedData,omitempty"`
	Fail   *Failure    `json:"failure,omitempty"`
}

// NewProcessingTask creates a task awaiting extraction.
func NewProcessingTask(description string) Task {
	return Task{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Status:      StatusProcessing,
		Description: description,
	}
}

// NewSuccessTask creates an unpublished task holding one extracted listing.
func NewSuccessTask(listing Listing) Task {
	return Task{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Status:      StatusSuccess,
		Description: listing.Summary(),
		Result:      &Extraction{Listing: listing},
	}
}

// NewFailedTask creates a failed task retaining the source text for retry.
func NewFailedTask(description, sourceText, message string) Task {
	return Task{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Status:      StatusFailed,
		Description: description,
		Fail:        &Failure{SourceText: sourceText, Message: message},
	}
}

// IsTemplate reports whether the task was saved as a reusable template.
func (t Task) IsTemplate() bool {
	return t.Result != nil && t.Result.IsTemplate
}

// IsPublished reports whether the user confirmed the task via the form.
func (t Task) IsPublished() bool {
	return t.Result != nil && t.Result.IsPublished
}

// Valid reports whether the payload matches the status.
func (t Task) Valid() bool {
	switch t.Status {
	case StatusProcessing:
		return t.Result == nil && t.Fail == nil
	case StatusSuccess:
		return t.Result != nil && t.Fail == nil
	case StatusFailed:
		return t.Result == nil && t.Fail != nil
	default:
		return false
	}
}

// DescribeInput derives a task description from the submitted input. With no
// text, audio wins over image over nothing.
func DescribeInput(text string, hasAudio, hasImage bool) string {
	switch {
	case text != "":
		return text
	case hasAudio:
		return DescAudioInput
	case hasImage:
		return DescImageInput
	default:
		return DescUnknownInput
	}
}
