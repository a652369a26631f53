package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

// DocxExtractor decodes OOXML wordprocessing documents. A .docx file is a
// zip archive; the document body lives in word/document.xml with text runs
// in <w:t> elements and paragraph boundaries at <w:p>.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Name() string {
	return "docx"
}

func (e *DocxExtractor) CanExtract(fileType string) bool {
	return fileType == "docx"
}

func (e *DocxExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Extraction(err, "file is not a valid docx archive")
	}

	var body *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", errors.Extraction(nil, "docx archive has no word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return "", errors.Extraction(err, "cannot open docx document body")
	}
	defer rc.Close()

	text, err := decodeWordprocessingXML(rc)
	if err != nil {
		return "", errors.Extraction(err, "cannot decode docx document body")
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.Extraction(nil, "docx document contains no text")
	}
	return text, nil
}

// decodeWordprocessingXML streams the document XML and collects the text
// of every w:t run, inserting line breaks at paragraph ends and tabs
// between table cells.
func decodeWordprocessingXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	var inText bool

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			case "tc":
				sb.WriteByte('\t')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}
