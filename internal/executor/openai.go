package executor

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentswarm/agentpay/internal/registry"
)

// costPerThousandTokens converts completion usage into cost units.
const costPerThousandTokens = 0.002

// OpenAI executes tasks with chat completions, one prompt template per
// service type.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}
}

func prompt(serviceType registry.ServiceType, input string) (string, error) {
	switch serviceType {
	case registry.ServiceSummarizer:
		return "Provide a concise summary of this text: " + input, nil
	case registry.ServiceTranslation:
		return "Translate the following text to English. If it is already English, translate it to Spanish: " + input, nil
	case registry.ServiceScraper:
		return "Summarize the main content found at this URL: " + input, nil
	case registry.ServiceImageGen:
		return "Generate a detailed image description for: " + input, nil
	case registry.ServicePDFLoader:
		return "Extract the key text content from this document reference: " + input, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedService, serviceType)
	}
}

func (o *OpenAI) Run(ctx context.Context, serviceType registry.ServiceType, input string) (*Result, error) {
	p, err := prompt(serviceType, input)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: p},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("task execution failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("task execution returned no output")
	}

	return &Result{
		Output:    resp.Choices[0].Message.Content,
		CostUnits: float64(resp.Usage.TotalTokens) / 1000.0 * costPerThousandTokens,
	}, nil
}
