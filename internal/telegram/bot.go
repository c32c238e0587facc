package telegram

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chat-relay/internal/audio"
	"chat-relay/internal/files"
	"chat-relay/internal/history"
	"chat-relay/internal/llm"
	"chat-relay/internal/media"
	"chat-relay/internal/storage"
)

type Bot struct {
	api            *tgbotapi.BotAPI
	s              sender
	llmClient      llm.Client
	transcriber    llm.Transcriber
	converter      audio.Converter
	fetcher        files.Fetcher
	recorder       storage.Recorder
	history        *history.Manager
	stager         *media.Stager
	systemPrompt   string
	requestTimeout time.Duration
}

type Options struct {
	LLMClient      llm.Client
	Transcriber    llm.Transcriber
	Converter      audio.Converter
	Recorder       storage.Recorder
	SystemPrompt   string
	DownloadDir    string
	RequestTimeout time.Duration
}

func New(botToken string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	fetcher, err := files.NewTelegramFetcher(api, opts.DownloadDir)
	if err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Converter == nil {
		opts.Converter = audio.FFmpeg{}
	}
	return &Bot{
		api:            api,
		s:              botAPISender{api: api},
		llmClient:      opts.LLMClient,
		transcriber:    opts.Transcriber,
		converter:      opts.Converter,
		fetcher:        fetcher,
		recorder:       opts.Recorder,
		history:        history.NewManager(),
		stager:         media.NewStager(),
		systemPrompt:   opts.SystemPrompt,
		requestTimeout: opts.RequestTimeout,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Printf("🤖 Bot @%s is running", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			// One goroutine per update: a slow gateway call for one
			// user must not stall other users' messages.
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Handler panic: %v", r)
		}
	}()
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// handleIncomingMessage classifies one inbound message. First match
// wins: command, menu label, media attachment, then freeform text.
func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Text != "" && isMenuLabel(msg.Text):
		b.handleMenu(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	case msg.Voice != nil || msg.Audio != nil:
		b.handleVoice(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case msg.Text != "":
		b.processChat(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	switch cb.Data {
	case retryCmd:
		b.retryLast(ctx, cb.Message.Chat.ID, cb.From.ID)
	case clearCmd:
		b.history.Reset(cb.From.ID)
		b.sendText(cb.Message.Chat.ID, "Memory has been cleared.")
	}
}

func (b *Bot) generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()
	return b.llmClient.Generate(ctx, msgs)
}

// contextFor builds the gateway request: system prompt first, then the
// user's current window.
func (b *Bot) contextFor(userID int64) []llm.Message {
	var msgs []llm.Message
	if b.systemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: b.systemPrompt})
	}
	return append(msgs, b.history.Get(userID)...)
}

func (b *Bot) record(userID int64, userMsg, assistantMsg string) {
	if b.recorder == nil {
		return
	}
	_ = b.recorder.AppendInteraction(storage.Event{
		Timestamp:         time.Now().UTC(),
		UserID:            userID,
		UserMessage:       userMsg,
		AssistantResponse: assistantMsg,
	})
}

func (b *Bot) logResponse(resp llm.Response) {
	log.Printf("LLM response [model=%s, tokens: prompt=%d, completion=%d, total=%d]: %q",
		resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens, resp.Content)
}
