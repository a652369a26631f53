package domain

// Step identifies the pipeline stage currently running
type Step string

const (
	StepUpload     Step = "upload"
	StepExtraction Step = "extraction"
	StepParsing    Step = "parsing"
	StepFormatting Step = "formatting"
	StepCompleted  Step = "completed"
)

// Progress milestones per stage. Percent is non-decreasing within a run
// and only reaches 100 on success.
const (
	ProgressUpload     = 10
	ProgressExtraction = 25
	ProgressParsing    = 50
	ProgressFormatting = 75
	ProgressCompleted  = 100
)

// Progress is a snapshot of a running pipeline, published to subscribers
// after every stage transition.
type Progress struct {
	DocumentID string `json:"documentId"`
	Step       Step   `json:"step"`
	Percent    int    `json:"percent"`
	Error      string `json:"error,omitempty"`
}
