package bedrock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// converseAPI is the slice of the bedrockruntime client we use, extracted so
// tests can substitute a fake.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Client struct {
	api     converseAPI
	modelID string
	logger  *slog.Logger
}

func NewClient(awsCfg aws.Config, modelID string, logger *slog.Logger) *Client {
	return &Client{
		api:     bedrockruntime.NewFromConfig(awsCfg),
		modelID: modelID,
		logger:  logger,
	}
}

// Message is a single conversation turn in the shape the rest of the service
// uses; it is converted to the Bedrock wire types on the way out.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenConfig carries the generation parameters for one call. Call sites use
// fixed constants; nothing here is user-configurable.
type GenConfig struct {
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Converse sends the system prompt and messages to the configured model and
// returns the first text block of the reply. Any transport failure comes back
// as an *UnavailableError; a reply without a text block comes back as
// ErrNoTextContent. No retries are attempted here.
func (c *Client) Converse(ctx context.Context, system string, messages []Message, gen GenConfig) (string, error) {
	inference := &types.InferenceConfiguration{
		MaxTokens: aws.Int32(gen.MaxTokens),
	}
	if gen.Temperature > 0 {
		inference.Temperature = aws.Float32(gen.Temperature)
	}
	if gen.TopP > 0 {
		inference.TopP = aws.Float32(gen.TopP)
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(c.modelID),
		Messages:        toWireMessages(messages),
		InferenceConfig: inference,
	}
	if system != "" {
		in.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}

	c.logger.Debug("calling bedrock", "model", c.modelID, "messages", len(messages))

	out, err := c.api.Converse(ctx, in)
	if err != nil {
		ue := classify(err)
		c.logger.Error("bedrock call failed", "reason", string(ue.Reason), "error", err)
		return "", ue
	}

	text, err := extractText(out)
	if err != nil {
		return "", err
	}
	return text, nil
}

func toWireMessages(messages []Message) []types.Message {
	wire := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		wire = append(wire, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return wire
}

func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("%w: unexpected converse output type %T", ErrNoTextContent, out.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", ErrNoTextContent
}
