package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/swasthya/sahayak/internal/config"
	"github.com/swasthya/sahayak/pkg/logger"
)

const detectionSystemPrompt = `You are an expert medical assistant specializing in emergency detection. Given the symptoms described by the user, determine whether they indicate a medical emergency.

Respond with a single JSON object with these fields:
- "is_emergency" (boolean, required): whether the symptoms indicate a medical emergency
- "emergency_type" (string, optional): if it is an emergency, the type detected (e.g. heart attack, stroke, snake bite)
- "reason" (string, required): a brief explanation of why the symptoms are or are not considered an emergency, in the user's language
- "confidence_level" (number, required): a value between 0 and 1 indicating your confidence in the detection
- "first_aid" (string, optional): if it is an emergency, short first aid guidance the user can follow while waiting for help, in the user's language`

const qaSystemPrompt = `You are a helpful health assistant that answers health-related questions in the user's local language.

Respond with a single JSON object with one field:
- "answer" (string, required): the answer to the question, written in the user's language`

// OpenAIClient performs the two classification tasks against the OpenAI chat
// completions API. Both operations are stateless single round trips.
type OpenAIClient struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *logger.Logger
}

// NewOpenAIClient creates a new classification client
func NewOpenAIClient(cfg config.ClassifierConfig, log *logger.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier API key is required")
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout()),
	)

	return &OpenAIClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      log.Named("classifier"),
	}, nil
}

// DetectEmergency runs the emergency detection task for the given symptoms
func (c *OpenAIClient) DetectEmergency(ctx context.Context, input DetectionInput) (*EmergencyAssessment, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Symptoms: %s\n", input.Symptoms)
	if input.Language != "" {
		fmt.Fprintf(&sb, "Language: %s\n", input.Language)
	}
	if input.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", input.Location)
	}

	content, err := c.complete(ctx, detectionSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	assessment, err := decodeAssessment([]byte(content))
	if err != nil {
		c.logger.Warn("Emergency detection returned malformed output",
			logger.String("content", content),
			logger.Error(err))
		return nil, err
	}

	c.logger.Debug("Emergency detection completed",
		logger.Bool("is_emergency", assessment.IsEmergency),
		logger.Float64("confidence", assessment.Confidence),
		logger.String("type", assessment.EmergencyType))

	return assessment, nil
}

// AnswerHealthQuestion runs the health Q&A task for the given question
func (c *OpenAIClient) AnswerHealthQuestion(ctx context.Context, question, language string) (*QAAnswer, error) {
	user := fmt.Sprintf("Question: %s\nLanguage: %s\n", question, language)

	content, err := c.complete(ctx, qaSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	answer, err := decodeAnswer([]byte(content))
	if err != nil {
		c.logger.Warn("Q&A returned malformed output",
			logger.String("content", content),
			logger.Error(err))
		return nil, err
	}

	answer.Question = question
	answer.Language = language
	return answer, nil
}

// complete performs a single chat completion round trip in JSON mode
func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(int64(c.maxTokens)),
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassification, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", ErrClassification)
	}

	return completion.Choices[0].Message.Content, nil
}

// rawAssessment mirrors the service output schema. Required fields are
// pointers so an omitted field can be told apart from a zero value.
type rawAssessment struct {
	IsEmergency   *bool    `json:"is_emergency"`
	EmergencyType string   `json:"emergency_type"`
	Reason        *string  `json:"reason"`
	Confidence    *float64 `json:"confidence_level"`
	FirstAid      string   `json:"first_aid"`
}

// decodeAssessment strictly validates service output against the detection
// schema. Required fields must be present and well formed; optional fields
// default to empty. Defaults are never guessed for required fields.
func decodeAssessment(data []byte) (*EmergencyAssessment, error) {
	var raw rawAssessment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrClassification, err)
	}

	if raw.IsEmergency == nil {
		return nil, fmt.Errorf("%w: missing required field is_emergency", ErrClassification)
	}
	if raw.Reason == nil || *raw.Reason == "" {
		return nil, fmt.Errorf("%w: missing required field reason", ErrClassification)
	}
	if raw.Confidence == nil {
		return nil, fmt.Errorf("%w: missing required field confidence_level", ErrClassification)
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence_level %f outside [0,1]", ErrClassification, *raw.Confidence)
	}

	return &EmergencyAssessment{
		IsEmergency:   *raw.IsEmergency,
		EmergencyType: raw.EmergencyType,
		Reason:        *raw.Reason,
		Confidence:    *raw.Confidence,
		FirstAid:      raw.FirstAid,
	}, nil
}

// decodeAnswer strictly validates service output against the Q&A schema
func decodeAnswer(data []byte) (*QAAnswer, error) {
	var raw struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrClassification, err)
	}
	if raw.Answer == nil || *raw.Answer == "" {
		return nil, fmt.Errorf("%w: missing required field answer", ErrClassification)
	}
	return &QAAnswer{Answer: *raw.Answer}, nil
}
