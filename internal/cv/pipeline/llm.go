package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/pkg/config"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

const cvExtractionPrompt = `You are a CV data extraction service. Analyze the CV text below and extract structured data.

Rules:
1. Extract only information present in the text. Leave missing fields empty.
2. Keep the original ordering of experience and education entries.
3. Respond with valid JSON only. No markdown fences, no commentary.

JSON schema:
{
  "personalInfo": {"name": "", "jobTitle": "", "nationality": "", "languages": [], "dateOfBirth": "", "maritalStatus": ""},
  "profile": "",
  "experience": [{"company": "", "position": "", "startDate": "", "endDate": "", "responsibilities": []}],
  "education": [{"degree": "", "institution": "", "graduationDate": ""}],
  "skills": [],
  "interests": []
}

CV text:
`

// LLMParser extracts the structured record with a language model through
// langchaingo. The model is instructed to emit strict JSON matching the
// CVRecord schema; anything else is a parsing failure.
type LLMParser struct {
	llm       llms.Model
	modelName string
}

// NewLLMParser creates an LLM-backed parser for the configured provider
func NewLLMParser(cfg *config.LLMConfig) (*LLMParser, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &LLMParser{
		llm:       model,
		modelName: cfg.Model,
	}, nil
}

func (p *LLMParser) Name() string {
	return "llm:" + p.modelName
}

func (p *LLMParser) Parse(ctx context.Context, text string) (*domain.CVRecord, error) {
	if len(strings.TrimSpace(text)) < minParseableLength {
		return nil, errors.Parsing(nil, "extracted text is too short to be a CV")
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, p.llm, cvExtractionPrompt+text)
	if err != nil {
		return nil, errors.Parsing(err, "language model request failed")
	}

	var record domain.CVRecord
	if err := json.Unmarshal([]byte(stripFences(response)), &record); err != nil {
		return nil, errors.Parsing(err, "language model returned invalid JSON")
	}

	if record.IsZero() {
		return nil, errors.Parsing(nil, "language model extracted no CV content")
	}
	return &record, nil
}

// stripFences removes markdown code fences some models wrap around JSON
// despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
