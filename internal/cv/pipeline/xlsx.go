package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

// XlsxExtractor decodes OOXML spreadsheets. Cell text either lives inline
// or points into xl/sharedStrings.xml; rows become lines, cells become
// tab-separated values.
type XlsxExtractor struct{}

func NewXlsxExtractor() *XlsxExtractor {
	return &XlsxExtractor{}
}

func (e *XlsxExtractor) Name() string {
	return "xlsx"
}

func (e *XlsxExtractor) CanExtract(fileType string) bool {
	return fileType == "xlsx"
}

type sharedStrings struct {
	Items []struct {
		Text string `xml:"t"`
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type worksheet struct {
	Rows []struct {
		Cells []struct {
			Type  string `xml:"t,attr"`
			Value string `xml:"v"`
			// Inline strings carry their text under is/t
			Inline string `xml:"is>t"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func (e *XlsxExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Extraction(err, "file is not a valid xlsx archive")
	}

	shared, err := loadSharedStrings(reader)
	if err != nil {
		return "", errors.Extraction(err, "cannot decode xlsx shared strings")
	}

	var sb strings.Builder
	var sheets int
	for _, f := range reader.File {
		if !strings.HasPrefix(f.Name, "xl/worksheets/sheet") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		sheets++

		if err := appendSheetText(&sb, f, shared); err != nil {
			return "", errors.Extraction(err, "cannot decode xlsx worksheet "+f.Name)
		}
	}

	if sheets == 0 {
		return "", errors.Extraction(nil, "xlsx archive has no worksheets")
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.Extraction(nil, "xlsx workbook contains no text")
	}
	return text, nil
}

func loadSharedStrings(reader *zip.Reader) ([]string, error) {
	for _, f := range reader.File {
		if f.Name != "xl/sharedStrings.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}

		var ss sharedStrings
		if err := xml.Unmarshal(raw, &ss); err != nil {
			return nil, err
		}

		strs := make([]string, len(ss.Items))
		for i, item := range ss.Items {
			if item.Text != "" {
				strs[i] = item.Text
				continue
			}
			var runs strings.Builder
			for _, r := range item.Runs {
				runs.WriteString(r.Text)
			}
			strs[i] = runs.String()
		}
		return strs, nil
	}

	// A workbook with only inline or numeric cells has no shared strings part.
	return nil, nil
}

func appendSheetText(sb *strings.Builder, f *zip.File, shared []string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	var ws worksheet
	if err := xml.Unmarshal(raw, &ws); err != nil {
		return err
	}

	for _, row := range ws.Rows {
		var cells []string
		for _, cell := range row.Cells {
			switch cell.Type {
			case "s":
				idx, err := strconv.Atoi(cell.Value)
				if err != nil || idx < 0 || idx >= len(shared) {
					continue
				}
				cells = append(cells, shared[idx])
			case "inlineStr":
				cells = append(cells, cell.Inline)
			default:
				cells = append(cells, cell.Value)
			}
		}
		line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
		if line != "" {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return nil
}
