package llm

import (
	"fmt"
	"strings"

	"chat-relay/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory creates gateway clients with consistent logic.
type Factory struct {
	openAIAPIKey       string
	openAIBaseURL      string
	openRouterReferrer string
	openRouterTitle    string
	transcribeModel    string
	yandexOAuthToken   string
	yandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		openAIAPIKey:       cfg.OpenAIAPIKey,
		openAIBaseURL:      cfg.OpenAIBaseURL,
		openRouterReferrer: cfg.OpenRouterReferrer,
		openRouterTitle:    cfg.OpenRouterTitle,
		transcribeModel:    cfg.TranscribeModel,
		yandexOAuthToken:   cfg.YandexOAuthToken,
		yandexFolderID:     cfg.YandexFolderID,
	}
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(f.openAIAPIKey, f.openAIBaseURL, model, f.transcribeModel, f.openRouterReferrer, f.openRouterTitle), nil
	case ProviderYandex:
		return NewYandex(f.yandexOAuthToken, f.yandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// CreateTranscriber returns the speech-to-text gateway. Only the OpenAI
// provider covers transcription; without an OpenAI key the result is
// nil and voice messages are answered with a configuration notice.
func (f *Factory) CreateTranscriber() Transcriber {
	if f.openAIAPIKey == "" {
		return nil
	}
	return NewOpenAI(f.openAIAPIKey, f.openAIBaseURL, "", f.transcribeModel, f.openRouterReferrer, f.openRouterTitle)
}
