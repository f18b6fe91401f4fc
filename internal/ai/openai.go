package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const classifySystemPrompt = `You classify customer messages sent to the business "%s".
Respond with a single JSON object: {"label": one of ["booking","location","off_topic","general"], "confidence": 0..1, "sentiment": one of ["positive","neutral","negative"], "suggestedReply": optional short reply}.
"booking" means the customer wants to schedule, reschedule or ask about an appointment.
"location" means the customer asks where the business is.
"off_topic" means the message is unrelated to the business.`

const replySystemPrompt = `You are the assistant of the business "%s". Answer the customer briefly and helpfully, in the customer's language. Stay on topic; do not invent prices or availability.`

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *OpenAIClient) Classify(ctx context.Context, businessName, message string) (Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(classifySystemPrompt, businessName)},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Intent{}, fmt.Errorf("classify completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Intent{}, fmt.Errorf("classify completion: empty response")
	}

	var intent Intent
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &intent); err != nil {
		return Intent{}, fmt.Errorf("parse classification %q: %w", content, err)
	}
	if intent.Label == "" {
		intent.Label = IntentGeneral
	}
	return intent, nil
}

func (c *OpenAIClient) Reply(ctx context.Context, businessName, message, prevIntent string, history []Turn) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(replySystemPrompt, businessName)},
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	content := message
	if prevIntent != "" {
		content = fmt.Sprintf("[detected intent: %s] %s", prevIntent, message)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("reply completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("reply completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
