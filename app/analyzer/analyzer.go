package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/bondlens/bondlens/app/classifier"
)

const maxDocumentChars = 6000

// Analyzer converts one in-scope, non-duplicate document into an
// ArticleAssessment through a single structured-extraction request against
// the LLM collaborator. The collaborator is treated as an untrusted producer:
// everything it returns passes schema validation before entering the data model.
type Analyzer struct {
	chatModel model.ChatModel
	limiter   *rate.Limiter
	schema    Schema
	weights   WeightConfig
	timeout   time.Duration
}

func NewAnalyzer(chatModel model.ChatModel, limiter *rate.Limiter, extractionSchema Schema, weights WeightConfig, timeout time.Duration) *Analyzer {
	return &Analyzer{
		chatModel: chatModel,
		limiter:   limiter,
		schema:    extractionSchema,
		weights:   weights,
		timeout:   timeout,
	}
}

func (a *Analyzer) Schema() Schema {
	return a.schema
}

// rawAssessment is the decoded LLM payload before validation.
type rawAssessment struct {
	Scores    map[string]float64 `json:"scores"`
	Direction string             `json:"direction"`
	Theses    []string           `json:"theses"`
}

// Run analyzes one document. On validation failure or timeout it makes exactly
// one retry with a stricter reformulation; a second failure returns a rejected
// assessment together with an error wrapping ErrRejectedAssessment. A rejected
// document is excluded from synthesis but its disposition is recorded.
func (a *Analyzer) Run(ctx context.Context, doc classifier.Document, credibilityTier int) (ArticleAssessment, error) {
	assessment := ArticleAssessment{
		DocumentID:    doc.ID,
		SourceID:      doc.SourceID,
		SchemaVersion: a.schema.Version,
		PublishedAt:   doc.PublishedAt,
		CreatedAt:     time.Now().UTC(),
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := a.request(ctx, doc, attempt > 0)
		if err != nil {
			lastErr = err
			slog.Warn("Analysis attempt failed", "document", doc.ID, "attempt", attempt+1, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		assessment.Scores = raw.Scores
		assessment.Direction = raw.Direction
		assessment.Theses = raw.Theses
		assessment.Weight = a.weights.Weight(credibilityTier, doc.ReadCount)
		assessment.Status = StatusValid
		return assessment, nil
	}

	assessment.Status = StatusRejected
	assessment.RejectReason = lastErr.Error()
	return assessment, fmt.Errorf("%w: document %s: %v", ErrRejectedAssessment, doc.ID, lastErr)
}

func (a *Analyzer) request(ctx context.Context, doc classifier.Document, strict bool) (*rawAssessment, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("limiter wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.chatModel.Generate(callCtx, a.messages(doc, strict))
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	payload := extractJSON(resp.Content)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var raw rawAssessment
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if err := a.schema.validate(&raw); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	return &raw, nil
}

func (a *Analyzer) messages(doc classifier.Document, strict bool) []*schema.Message {
	systemPrompt := "You are a fixed-income research analyst. You read bond-market commentary and extract structured assessments. Output only the requested JSON."
	if strict {
		systemPrompt = "You are a JSON generator. Output exactly one JSON object matching the requested shape. No explanations, no markdown, no extra keys. Your previous answer was invalid; follow the bounds and the label enum exactly."
	}

	content := doc.RawText
	if len(content) > maxDocumentChars {
		// Truncate on a rune boundary; a byte slice could split a multi-byte
		// character and send invalid UTF-8.
		if runes := []rune(content); len(runes) > maxDocumentChars {
			content = string(runes[:maxDocumentChars])
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Institution: %s\nPublished: %s\nTitle: %s\n\nArticle:\n%s\n\n", doc.SourceID, doc.PublishedAt.Format(time.DateOnly), doc.Title, content)
	b.WriteString(a.schema.contract())

	return []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: b.String()},
	}
}

// extractJSON tolerates markdown fences and prose around the payload by
// slicing from the first '{' to the last '}'.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}
