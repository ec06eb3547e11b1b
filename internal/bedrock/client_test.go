package bedrock

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

type fakeConverseAPI struct {
	lastInput *bedrockruntime.ConverseInput
	reply     string
	noContent bool
	err       error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	var content []types.ContentBlock
	if !f.noContent {
		content = []types.ContentBlock{&types.ContentBlockMemberText{Value: f.reply}}
	}
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: content,
			},
		},
	}, nil
}

func testClient(api converseAPI) *Client {
	return &Client{api: api, modelID: "test-model", logger: slog.Default()}
}

func TestConverse_Success(t *testing.T) {
	fake := &fakeConverseAPI{reply: "world"}
	c := testClient(fake)

	got, err := c.Converse(context.Background(), "be terse", []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "again"},
	}, GenConfig{MaxTokens: 100, Temperature: 0.7, TopP: 0.9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "world" {
		t.Errorf("expected reply 'world', got %q", got)
	}

	in := fake.lastInput
	if aws.ToString(in.ModelId) != "test-model" {
		t.Errorf("expected model id test-model, got %q", aws.ToString(in.ModelId))
	}
	if len(in.Messages) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(in.Messages))
	}
	if in.Messages[1].Role != types.ConversationRoleAssistant {
		t.Errorf("expected assistant role on second message, got %s", in.Messages[1].Role)
	}
	if len(in.System) != 1 {
		t.Fatalf("expected system prompt to be set")
	}
	if aws.ToInt32(in.InferenceConfig.MaxTokens) != 100 {
		t.Errorf("expected max tokens 100, got %d", aws.ToInt32(in.InferenceConfig.MaxTokens))
	}
}

func TestConverse_NoSystemPrompt(t *testing.T) {
	fake := &fakeConverseAPI{reply: "ok"}
	c := testClient(fake)

	if _, err := c.Converse(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, GenConfig{MaxTokens: 50}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.lastInput.System) != 0 {
		t.Errorf("expected no system blocks, got %d", len(fake.lastInput.System))
	}
}

func TestConverse_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason Reason
	}{
		{"access denied", &types.AccessDeniedException{Message: aws.String("no")}, ReasonAccessDenied},
		{"model not found", &types.ResourceNotFoundException{Message: aws.String("bad model")}, ReasonModelNotFound},
		{"throttled", &types.ThrottlingException{Message: aws.String("slow down")}, ReasonThrottled},
		{"quota exceeded", &types.ServiceQuotaExceededException{Message: aws.String("quota")}, ReasonThrottled},
		{"generic api error", &smithy.GenericAPIError{Code: "ValidationException", Message: "bad input"}, ReasonService},
		{"connectivity", errors.New("dial tcp: connection refused"), ReasonConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(&fakeConverseAPI{err: tt.err})
			_, err := c.Converse(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, GenConfig{MaxTokens: 10})
			if err == nil {
				t.Fatal("expected error")
			}
			var ue *UnavailableError
			if !errors.As(err, &ue) {
				t.Fatalf("expected UnavailableError, got %T", err)
			}
			if ue.Reason != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, ue.Reason)
			}
			if !IsUnavailable(err) {
				t.Error("IsUnavailable should report true")
			}
		})
	}
}

func TestConverse_NoTextContent(t *testing.T) {
	fake := &fakeConverseAPI{noContent: true}
	c := testClient(fake)

	_, err := c.Converse(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, GenConfig{MaxTokens: 10})
	if err == nil {
		t.Fatal("expected error for reply without text content")
	}
	if !errors.Is(err, ErrNoTextContent) {
		t.Errorf("expected ErrNoTextContent, got %v", err)
	}
	if IsUnavailable(err) {
		t.Error("missing text content is not a transport failure")
	}
}
