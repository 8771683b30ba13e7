package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mailtriage/internal/config"
	"mailtriage/internal/models"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const systemPrompt = "You are a sales assistant drafting replies to customer emails. " +
	"Respond with a single JSON object and nothing else, using exactly these keys: " +
	`"subject", "body", "recommendation". ` +
	"subject is the reply subject line, body is the full reply text, and " +
	"recommendation is a short internal-only note for the sales team. " +
	"When order pricing data is provided, the body must state whether the quoted " +
	"prices are higher, lower, or equal to the internal reference prices."

// LLMClient calls the text-generation provider through an eino chat model.
type LLMClient struct {
	chatModel model.BaseChatModel
}

// NewLLMClient builds the client for the configured provider. token overrides
// the config file key when non-empty (a key saved through settings wins).
func NewLLMClient(provCfg config.ProviderConfig, token string) (*LLMClient, error) {
	if token == "" {
		token = provCfg.APIKey
	}
	if token == "" {
		return nil, fmt.Errorf("api key not configured")
	}
	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		BaseURL: provCfg.BaseURL,
		Model:   provCfg.Model,
		APIKey:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return &LLMClient{chatModel: chatModel}, nil
}

// generate is the LLM strategy: call the model, then recover a structured
// reply from whatever came back. An error here falls through to the template.
func (c *LLMClient) generate(ctx context.Context, pc *PromptContext) (*models.GeneratedReply, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: buildUserPrompt(pc)},
	}
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	generated, err := parseReply(resp.Content)
	if err != nil {
		return nil, err
	}
	generated.Source = models.ReplySourceLLM
	return generated, nil
}

// buildUserPrompt renders the email and any pricing context for the model.
func buildUserPrompt(pc *PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", pc.Category)
	fmt.Fprintf(&b, "From: %s\n", pc.SenderName)
	fmt.Fprintf(&b, "Subject: %s\n\n", pc.Subject)
	fmt.Fprintf(&b, "Email body:\n%s\n", pc.Body)

	if pc.Order != nil && pc.Summary != nil {
		b.WriteString("\nExtracted order data (JSON):\n")
		if data, err := json.Marshal(pc.Order); err == nil {
			b.Write(data)
			b.WriteByte('\n')
		}
		b.WriteString("\nPrice comparison (JSON):\n")
		if data, err := json.Marshal(pc.Summary); err == nil {
			b.Write(data)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
