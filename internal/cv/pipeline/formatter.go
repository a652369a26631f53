package pipeline

import (
	"strings"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

// Formatter normalizes a parsed record to the house formatting style and
// renders the plain-text layout stored as FormattedContent.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format cleans the record in place and returns the rendered layout
func (f *Formatter) Format(record *domain.CVRecord) string {
	f.normalize(record)
	return f.render(record)
}

func (f *Formatter) normalize(record *domain.CVRecord) {
	record.PersonalInfo.Name = tidy(record.PersonalInfo.Name)
	record.PersonalInfo.JobTitle = tidy(record.PersonalInfo.JobTitle)
	record.PersonalInfo.Nationality = tidy(record.PersonalInfo.Nationality)
	record.PersonalInfo.DateOfBirth = tidy(record.PersonalInfo.DateOfBirth)
	record.PersonalInfo.MaritalStatus = tidy(record.PersonalInfo.MaritalStatus)
	record.PersonalInfo.Languages = dedupe(record.PersonalInfo.Languages)
	record.Profile = tidy(record.Profile)

	for i := range record.Experience {
		exp := &record.Experience[i]
		exp.Company = tidy(exp.Company)
		exp.Position = tidy(exp.Position)
		exp.StartDate = tidy(exp.StartDate)
		exp.EndDate = tidy(exp.EndDate)
		if exp.EndDate == "" && exp.StartDate != "" {
			exp.EndDate = "Present"
		}
		for j, r := range exp.Responsibilities {
			exp.Responsibilities[j] = tidy(r)
		}
	}

	for i := range record.Education {
		edu := &record.Education[i]
		edu.Degree = tidy(edu.Degree)
		edu.Institution = tidy(edu.Institution)
		edu.GraduationDate = tidy(edu.GraduationDate)
	}

	record.Skills = dedupe(record.Skills)
	record.Interests = dedupe(record.Interests)
}

func (f *Formatter) render(record *domain.CVRecord) string {
	var sb strings.Builder

	sb.WriteString(domain.FieldOrFallback(record.PersonalInfo.Name))
	sb.WriteByte('\n')
	sb.WriteString(domain.FieldOrFallback(record.PersonalInfo.JobTitle))
	sb.WriteString("\n\n")

	writeSection(&sb, "PROFILE")
	sb.WriteString(domain.FieldOrFallback(record.Profile))
	sb.WriteString("\n\n")

	writeSection(&sb, "EXPERIENCE")
	if len(record.Experience) == 0 {
		sb.WriteString(domain.NotAvailable)
		sb.WriteByte('\n')
	}
	for _, exp := range record.Experience {
		sb.WriteString(domain.FieldOrFallback(exp.Position))
		sb.WriteString(" — ")
		sb.WriteString(domain.FieldOrFallback(exp.Company))
		sb.WriteByte('\n')
		sb.WriteString(domain.FieldOrFallback(exp.StartDate))
		sb.WriteString(" – ")
		sb.WriteString(domain.FieldOrFallback(exp.EndDate))
		sb.WriteByte('\n')
		for _, r := range exp.Responsibilities {
			sb.WriteString("  • ")
			sb.WriteString(r)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	writeSection(&sb, "EDUCATION")
	if len(record.Education) == 0 {
		sb.WriteString(domain.NotAvailable)
		sb.WriteByte('\n')
	}
	for _, edu := range record.Education {
		sb.WriteString(domain.FieldOrFallback(edu.Degree))
		sb.WriteString(", ")
		sb.WriteString(domain.FieldOrFallback(edu.Institution))
		sb.WriteString(" (")
		sb.WriteString(domain.FieldOrFallback(edu.GraduationDate))
		sb.WriteString(")\n")
	}
	sb.WriteByte('\n')

	writeSection(&sb, "SKILLS")
	sb.WriteString(strings.Join(domain.ListOrFallback(record.Skills), ", "))
	sb.WriteString("\n\n")

	writeSection(&sb, "INTERESTS")
	sb.WriteString(strings.Join(domain.ListOrFallback(record.Interests), ", "))
	sb.WriteByte('\n')

	return sb.String()
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(title)
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("-", len(title)))
	sb.WriteByte('\n')
}

func tidy(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		cleaned := tidy(item)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}
