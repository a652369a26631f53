package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

// Parser turns extracted plain text into a structured CV record. It must
// fail with a parsing error on unusable input instead of producing an
// empty or fabricated record.
type Parser interface {
	Parse(ctx context.Context, text string) (*domain.CVRecord, error)
	Name() string
}

// minParseableLength guards against inputs too short to be a CV
const minParseableLength = 40

type sectionKind int

const (
	sectionHeader sectionKind = iota
	sectionProfile
	sectionExperience
	sectionEducation
	sectionSkills
	sectionInterests
	sectionLanguages
	sectionIgnored
)

var sectionHeadings = map[string]sectionKind{
	"profile":             sectionProfile,
	"summary":             sectionProfile,
	"about":               sectionProfile,
	"about me":            sectionProfile,
	"experience":          sectionExperience,
	"work experience":     sectionExperience,
	"employment":          sectionExperience,
	"employment history":  sectionExperience,
	"education":           sectionEducation,
	"skills":              sectionSkills,
	"technical skills":    sectionSkills,
	"interests":           sectionInterests,
	"hobbies":             sectionInterests,
	"languages":           sectionLanguages,
	"references":          sectionIgnored,
	"certifications":      sectionIgnored,
	"personal details":    sectionHeader,
	"personal information": sectionHeader,
}

var (
	dateRangeRe = regexp.MustCompile(`(?i)((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+)?\d{4}\s*(?:-|–|—|to)\s*((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{4}|\d{4}|Present|Current)`)
	bulletRe    = regexp.MustCompile(`^[-•*·]\s*`)
	kvRe        = regexp.MustCompile(`^([A-Za-z ]+):\s*(.+)$`)
	yearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// RuleParser is the default heading-driven CV parser. It recognizes the
// conventional section layout (profile, experience, education, skills,
// interests) and key-value contact lines in the header block.
type RuleParser struct{}

func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

func (p *RuleParser) Name() string {
	return "rules"
}

func (p *RuleParser) Parse(ctx context.Context, text string) (*domain.CVRecord, error) {
	if len(strings.TrimSpace(text)) < minParseableLength {
		return nil, errors.Parsing(nil, "extracted text is too short to be a CV")
	}

	record := &domain.CVRecord{}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	current := sectionHeader
	var profileLines []string
	var expBlock []string
	headerLines := 0

	flushExperience := func() {
		if entry := parseExperienceBlock(expBlock); entry != nil {
			record.Experience = append(record.Experience, *entry)
		}
		expBlock = expBlock[:0]
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if kind, ok := headingKind(line); ok {
			if current == sectionExperience {
				flushExperience()
			}
			current = kind
			continue
		}

		if line == "" {
			if current == sectionExperience {
				flushExperience()
			}
			continue
		}

		switch current {
		case sectionHeader:
			p.parseHeaderLine(record, line, &headerLines)
		case sectionProfile:
			profileLines = append(profileLines, line)
		case sectionExperience:
			expBlock = append(expBlock, line)
		case sectionEducation:
			if entry := parseEducationLine(line); entry != nil {
				record.Education = append(record.Education, *entry)
			}
		case sectionSkills:
			record.Skills = append(record.Skills, splitListLine(line)...)
		case sectionInterests:
			record.Interests = append(record.Interests, splitListLine(line)...)
		case sectionLanguages:
			record.PersonalInfo.Languages = append(record.PersonalInfo.Languages, splitListLine(line)...)
		}
	}
	if current == sectionExperience {
		flushExperience()
	}

	record.Profile = strings.Join(profileLines, " ")

	if record.IsZero() {
		return nil, errors.Parsing(nil, "no recognizable CV content in extracted text")
	}
	return record, nil
}

// parseHeaderLine fills the identity block from the lines before the
// first section heading: name first, job title second, then key-value
// contact lines.
func (p *RuleParser) parseHeaderLine(record *domain.CVRecord, line string, headerLines *int) {
	if m := kvRe.FindStringSubmatch(line); m != nil {
		key := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])
		switch key {
		case "name":
			record.PersonalInfo.Name = value
		case "job title", "title", "position":
			record.PersonalInfo.JobTitle = value
		case "nationality":
			record.PersonalInfo.Nationality = value
		case "date of birth", "born":
			record.PersonalInfo.DateOfBirth = value
		case "marital status":
			record.PersonalInfo.MaritalStatus = value
		case "languages":
			record.PersonalInfo.Languages = splitListLine(value)
		}
		return
	}

	*headerLines++
	switch *headerLines {
	case 1:
		record.PersonalInfo.Name = line
	case 2:
		record.PersonalInfo.JobTitle = line
	}
}

func headingKind(line string) (sectionKind, bool) {
	if line == "" || len(line) > 40 {
		return 0, false
	}
	normalized := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(line), ":"))
	kind, ok := sectionHeadings[normalized]
	return kind, ok
}

// parseExperienceBlock turns one blank-line-delimited block into a
// position. The first non-bullet line names position and company, a date
// range line sets the period, bullets become responsibilities.
func parseExperienceBlock(block []string) *domain.Experience {
	if len(block) == 0 {
		return nil
	}

	entry := &domain.Experience{}
	titleSeen := false

	for _, line := range block {
		if bulletRe.MatchString(line) {
			entry.Responsibilities = append(entry.Responsibilities, bulletRe.ReplaceAllString(line, ""))
			continue
		}

		if m := dateRangeRe.FindString(line); m != "" && entry.StartDate == "" {
			parts := regexp.MustCompile(`\s*(?:-|–|—|\bto\b)\s*`).Split(m, 2)
			entry.StartDate = strings.TrimSpace(parts[0])
			if len(parts) > 1 {
				entry.EndDate = strings.TrimSpace(parts[1])
			}
			rest := strings.TrimSpace(strings.Replace(line, m, "", 1))
			if rest != "" && !titleSeen {
				fillPositionCompany(entry, strings.Trim(rest, " ,|"))
				titleSeen = true
			}
			continue
		}

		if !titleSeen {
			fillPositionCompany(entry, line)
			titleSeen = true
			continue
		}

		// Trailing free text inside a block counts as a responsibility.
		entry.Responsibilities = append(entry.Responsibilities, line)
	}

	if entry.Position == "" && entry.Company == "" && len(entry.Responsibilities) == 0 {
		return nil
	}
	return entry
}

func fillPositionCompany(entry *domain.Experience, line string) {
	for _, sep := range []string{" at ", " @ ", ", ", " - ", " | "} {
		if idx := strings.Index(line, sep); idx > 0 {
			entry.Position = strings.TrimSpace(line[:idx])
			entry.Company = strings.TrimSpace(line[idx+len(sep):])
			return
		}
	}
	entry.Position = strings.TrimSpace(line)
}

// parseEducationLine reads one education entry, e.g.
// "BSc Computer Science, University of Technology, 2018"
func parseEducationLine(line string) *domain.Education {
	line = bulletRe.ReplaceAllString(line, "")
	entry := &domain.Education{}

	if year := yearRe.FindString(line); year != "" {
		entry.GraduationDate = year
	}

	parts := strings.Split(line, ",")
	entry.Degree = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		entry.Institution = strings.TrimSpace(parts[1])
	}

	if entry.Degree == "" {
		return nil
	}
	return entry
}

func splitListLine(line string) []string {
	line = bulletRe.ReplaceAllString(line, "")
	var items []string
	for _, item := range strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == '•' || r == '\t'
	}) {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
