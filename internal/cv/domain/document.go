package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LogLevel classifies a processing log entry
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ProcessingLog is one entry in a document's processing history
type ProcessingLog struct {
	Stage     string    `json:"stage"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LogList is the ordered processing history. The pipeline appends entries;
// a status update may replace the list wholesale (last write wins).
type LogList []ProcessingLog

// Value implements driver.Valuer for jsonb columns
func (l LogList) Value() (driver.Value, error) {
	if l == nil {
		l = LogList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for jsonb columns
func (l *LogList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = LogList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("cannot scan %T into LogList", src)
}

// Metadata holds free-form side info about the original upload
type Metadata map[string]interface{}

// Well-known metadata keys
const (
	MetaFileSize   = "fileSize"
	MetaUploadTime = "uploadTime"
	MetaObjectKey  = "objectKey"
)

// Value implements driver.Valuer for jsonb columns
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for jsonb columns
func (m *Metadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("cannot scan %T into Metadata", src)
}

// CVDocument is the persisted unit of the CV pipeline.
//
// ID is assigned exactly once by the store and never by callers.
// UpdatedAt is refreshed on every mutation and is never before CreatedAt.
type CVDocument struct {
	ID               string    `db:"id" json:"id"`
	FileName         string    `db:"file_name" json:"fileName"`
	FileType         string    `db:"file_type" json:"fileType"`
	OriginalContent  string    `db:"original_content" json:"originalContent"`
	ProcessedContent CVRecord  `db:"processed_content" json:"processedContent"`
	FormattedContent string    `db:"formatted_content" json:"formattedContent,omitempty"`
	Status           Status    `db:"status" json:"status"`
	ProcessingLogs   LogList   `db:"processing_logs" json:"processingLogs"`
	Metadata         Metadata  `db:"metadata" json:"metadata"`
	Creator          string    `db:"creator" json:"creator"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// DocumentUpdate is a partial update applied against the stored record.
// Nil fields are left untouched.
type DocumentUpdate struct {
	OriginalContent  *string   `json:"originalContent,omitempty"`
	ProcessedContent *CVRecord `json:"processedContent,omitempty"`
	FormattedContent *string   `json:"formattedContent,omitempty"`
	Status           *Status   `json:"status,omitempty"`
	ProcessingLogs   *LogList  `json:"processingLogs,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
}

// IsEmpty reports whether the update would change nothing
func (u DocumentUpdate) IsEmpty() bool {
	return u.OriginalContent == nil && u.ProcessedContent == nil &&
		u.FormattedContent == nil && u.Status == nil &&
		u.ProcessingLogs == nil && u.Metadata == nil
}

// Apply merges the update into the document and stamps UpdatedAt
func (u DocumentUpdate) Apply(doc *CVDocument, now time.Time) {
	if u.OriginalContent != nil {
		doc.OriginalContent = *u.OriginalContent
	}
	if u.ProcessedContent != nil {
		doc.ProcessedContent = *u.ProcessedContent
	}
	if u.FormattedContent != nil {
		doc.FormattedContent = *u.FormattedContent
	}
	if u.Status != nil {
		doc.Status = *u.Status
	}
	if u.ProcessingLogs != nil {
		doc.ProcessingLogs = *u.ProcessingLogs
	}
	if u.Metadata != nil {
		doc.Metadata = *u.Metadata
	}
	doc.UpdatedAt = now
}
