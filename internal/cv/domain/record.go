package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// NotAvailable is rendered for any record field the extraction could not fill.
// The preview must never crash on a missing field.
const NotAvailable = "Not available"

// PersonalInfo holds the identity block of a structured CV
type PersonalInfo struct {
	Name          string   `json:"name,omitempty"`
	JobTitle      string   `json:"jobTitle,omitempty"`
	Nationality   string   `json:"nationality,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	DateOfBirth   string   `json:"dateOfBirth,omitempty"`
	MaritalStatus string   `json:"maritalStatus,omitempty"`
}

// Experience is one position in the work history, most recent first
type Experience struct {
	Company          string   `json:"company,omitempty"`
	Position         string   `json:"position,omitempty"`
	StartDate        string   `json:"startDate,omitempty"`
	EndDate          string   `json:"endDate,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// Education is one degree entry
type Education struct {
	Degree         string `json:"degree,omitempty"`
	Institution    string `json:"institution,omitempty"`
	GraduationDate string `json:"graduationDate,omitempty"`
}

// CVRecord is the structured CV produced by the parsing stage and edited
// by the user afterwards. All fields are optional.
type CVRecord struct {
	PersonalInfo PersonalInfo `json:"personalInfo,omitempty"`
	Profile      string       `json:"profile,omitempty"`
	Experience   []Experience `json:"experience,omitempty"`
	Education    []Education  `json:"education,omitempty"`
	Skills       []string     `json:"skills,omitempty"`
	Interests    []string     `json:"interests,omitempty"`
}

// IsZero reports whether the record carries no content at all
func (r *CVRecord) IsZero() bool {
	p := r.PersonalInfo
	return p.Name == "" && p.JobTitle == "" && p.Nationality == "" &&
		len(p.Languages) == 0 && p.DateOfBirth == "" && p.MaritalStatus == "" &&
		r.Profile == "" &&
		len(r.Experience) == 0 &&
		len(r.Education) == 0 &&
		len(r.Skills) == 0 &&
		len(r.Interests) == 0
}

// FieldOrFallback returns the value, or the "Not available" placeholder
// when it is blank
func FieldOrFallback(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotAvailable
	}
	return v
}

// ListOrFallback returns the list, or a single placeholder entry when empty
func ListOrFallback(vs []string) []string {
	if len(vs) == 0 {
		return []string{NotAvailable}
	}
	return vs
}

// Value implements driver.Valuer so the record can be stored in a jsonb column
func (r CVRecord) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for jsonb columns
func (r *CVRecord) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = CVRecord{}
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return fmt.Errorf("cannot scan %T into CVRecord", src)
}
