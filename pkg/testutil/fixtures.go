package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

// DocumentFixture builds a stored CV document with sensible defaults.
// Pass option funcs to override individual fields.
func DocumentFixture(opts ...func(*domain.CVDocument)) domain.CVDocument {
	now := time.Now().UTC().Truncate(time.Second)
	doc := domain.CVDocument{
		ID:               uuid.New().String(),
		FileName:         "jane-doe-cv.pdf",
		FileType:         "pdf",
		Status:           domain.StatusProcessed,
		OriginalContent:  "Jane Doe\nSoftware Engineer\n",
		ProcessedContent: RecordFixture(),
		FormattedContent: "JANE DOE\nSoftware Engineer\n",
		ProcessingLogs: domain.LogList{
			{Stage: "upload", Level: domain.LogLevelInfo, Message: "upload received", Timestamp: now},
		},
		Metadata:  domain.Metadata{domain.MetaFileSize: float64(2048)},
		Creator:   "test-user",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&doc)
	}
	return doc
}

// WithStatus overrides the fixture status
func WithStatus(status domain.Status) func(*domain.CVDocument) {
	return func(d *domain.CVDocument) { d.Status = status }
}

// WithCreator overrides the fixture creator
func WithCreator(creator string) func(*domain.CVDocument) {
	return func(d *domain.CVDocument) { d.Creator = creator }
}

// WithID overrides the fixture document id
func WithID(id string) func(*domain.CVDocument) {
	return func(d *domain.CVDocument) { d.ID = id }
}

// RecordFixture builds a fully populated structured CV record
func RecordFixture() domain.CVRecord {
	return domain.CVRecord{
		PersonalInfo: domain.PersonalInfo{
			Name:        "Jane Doe",
			JobTitle:    "Software Engineer",
			Nationality: "Dutch",
			Languages:   []string{"English", "Dutch"},
		},
		Profile: "Backend engineer with a focus on data pipelines.",
		Experience: []domain.Experience{
			{
				Company:          "Acme Corp",
				Position:         "Software Engineer",
				StartDate:        "2020",
				EndDate:          "Present",
				Responsibilities: []string{"Built ingestion services", "Owned the document pipeline"},
			},
		},
		Education: []domain.Education{
			{Degree: "BSc Computer Science", Institution: "TU Delft", GraduationDate: "2019"},
		},
		Skills:    []string{"Go", "PostgreSQL"},
		Interests: []string{"Cycling"},
	}
}

// DocxFixture builds an in-memory .docx file whose document body contains
// the given paragraphs, one per line.
func DocxFixture(paragraphs ...string) []byte {
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	body.WriteString(`</w:body></w:document>`)

	return zipFixture(map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   body.String(),
	})
}

// XlsxFixture builds an in-memory .xlsx file with a single sheet. Each row
// is a slice of cell strings stored via the shared strings table.
func XlsxFixture(rows ...[]string) []byte {
	var shared bytes.Buffer
	var sheet bytes.Buffer

	shared.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	shared.WriteString(`<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)
	sheet.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sheet.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)

	idx := 0
	for ri, row := range rows {
		fmt.Fprintf(&sheet, `<row r="%d">`, ri+1)
		for _, cell := range row {
			fmt.Fprintf(&shared, `<si><t>%s</t></si>`, cell)
			fmt.Fprintf(&sheet, `<c t="s"><v>%d</v></c>`, idx)
			idx++
		}
		sheet.WriteString(`</row>`)
	}
	shared.WriteString(`</sst>`)
	sheet.WriteString(`</sheetData></worksheet>`)

	return zipFixture(map[string]string{
		"xl/sharedStrings.xml":   shared.String(),
		"xl/worksheets/sheet1.xml": sheet.String(),
	})
}

func zipFixture(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
