package telegram

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chat-relay/internal/files"
	"chat-relay/internal/llm"
	"chat-relay/internal/media"
)

// maxSummaryBytes caps how much of a document is sent for
// summarization.
const maxSummaryBytes = 100_000

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.history.Reset(msg.From.ID)
		b.sendMenuReply(msg.Chat.ID, "Hi! The assistant is ready. Pick an action from the menu or just type a message.")
	case "reset":
		b.history.Reset(msg.From.ID)
		b.sendText(msg.Chat.ID, "✅ Memory has been reset.")
	case "analyze":
		b.analyzeImage(ctx, msg.Chat.ID, msg.From.ID)
	case "help":
		b.sendText(msg.Chat.ID, helpText)
	default:
		b.sendText(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

// handleMenu re-dispatches menu presses to the matching command or a
// guidance prompt. Menu presses never call a gateway directly.
func (b *Bot) handleMenu(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Text {
	case menuReset:
		b.history.Reset(msg.From.ID)
		b.sendText(msg.Chat.ID, "✅ Memory has been reset.")
	case menuRetry:
		b.retryLast(ctx, msg.Chat.ID, msg.From.ID)
	case menuPhoto:
		b.sendText(msg.Chat.ID, "Send a photo and I will keep it for analysis.")
	case menuVoice:
		b.sendText(msg.Chat.ID, "Send a voice message and I will transcribe it.")
	case menuFile:
		b.sendText(msg.Chat.ID, "Send a file (txt / md / json work best).")
	}
}

// processChat is the single chat-completion path. Inbound text, voice
// transcripts and retry actions all enter here with a plain
// (chatID, userID, text) triple.
func (b *Bot) processChat(ctx context.Context, chatID, userID int64, text string) {
	log.Printf("💬 Chat from %d: %q", userID, text)
	b.history.AppendUser(userID, text)
	b.record(userID, text, "")

	resp, err := b.generate(ctx, b.contextFor(userID))
	if err != nil {
		// Operational errors stay out of the window: the model must
		// never see expired failure text as conversation content.
		log.Printf("❌ Completion failed for %d: %v", userID, err)
		b.sendError(chatID, "The assistant is unavailable right now, please try again.")
		return
	}

	b.history.AppendAssistant(userID, resp.Content)
	b.record(userID, "", resp.Content)
	b.logResponse(resp)
	b.sendChatReply(chatID, resp.Content)
}

// retryLast replays the most recent user turn through the completion
// path. The turn is appended again on purpose: the log should show the
// user asked twice.
func (b *Bot) retryLast(ctx context.Context, chatID, userID int64) {
	last, ok := b.history.LastUserMessage(userID)
	if !ok {
		b.sendText(chatID, "No history to retry.")
		return
	}
	b.processChat(ctx, chatID, userID, last)
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	photo := msg.Photo[len(msg.Photo)-1] // largest size last
	path, err := b.fetcher.Fetch(msg.From.ID, photo.FileID, "image", ".jpg")
	if err != nil {
		log.Printf("❌ Photo download failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not save the photo, please send it again.")
		return
	}
	b.stager.Stage(msg.From.ID, media.KindImage, path)
	b.sendText(msg.Chat.ID, "🖼️ Photo saved. Send /analyze to run a basic analysis (or describe what you want).")
}

const analyzePrompt = "The user sent an image which is stored server-side; " +
	"no binary image data is included in this conversation. If you cannot " +
	"see the image, suggest how the user could analyze it and what " +
	"questions to ask. If you can reason about likely content, describe " +
	"plausible objects and useful follow-up questions."

// analyzeImage runs the degraded-mode analysis over the staged photo.
// The image bytes never reach the completion backend, and the user is
// told so.
func (b *Bot) analyzeImage(ctx context.Context, chatID, userID int64) {
	rec, ok := b.stager.Staged(userID, media.KindImage)
	if !ok || !fileExists(rec.Path) {
		b.sendText(chatID, "No saved photo found. Please send a photo first.")
		return
	}
	b.sendText(chatID, "Asking the assistant about your photo. Note: the image itself is not transmitted, so this is generic guidance, not real vision analysis.")

	b.history.AppendUser(userID, "Please analyze the photo I just sent.")
	b.history.AppendSystem(userID, "The photo is stored on the server; its binary content was not sent to the model.")

	msgs := append(b.contextFor(userID), llm.Message{Role: "user", Content: analyzePrompt})
	resp, err := b.generate(ctx, msgs)
	if err != nil {
		log.Printf("❌ Image analysis failed for %d: %v", userID, err)
		b.sendError(chatID, "Could not analyze the photo right now.")
		return
	}
	b.history.AppendAssistant(userID, resp.Content)
	b.record(userID, "", resp.Content)
	b.logResponse(resp)
	b.sendText(chatID, resp.Content)
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	if b.transcriber == nil {
		b.sendError(msg.Chat.ID, "Voice transcription is not configured.")
		return
	}
	var fileID string
	switch {
	case msg.Voice != nil:
		fileID = msg.Voice.FileID
	case msg.Audio != nil:
		fileID = msg.Audio.FileID
	}

	oggPath, err := b.fetcher.Fetch(msg.From.ID, fileID, "voice", ".ogg")
	if err != nil {
		log.Printf("❌ Voice download failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not download the voice message.")
		return
	}
	b.sendText(msg.Chat.ID, "Transcribing your voice message...")

	wavPath, err := b.converter.Convert(ctx, oggPath, "wav")
	if err != nil {
		log.Printf("❌ Voice conversion failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not process the voice message.")
		return
	}

	tctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	transcript, err := b.transcriber.Transcribe(tctx, wavPath)
	cancel()
	if err != nil {
		log.Printf("❌ Transcription failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not transcribe the voice message.")
		return
	}

	b.sendText(msg.Chat.ID, "🗣️ You said: "+transcript)
	b.processChat(ctx, msg.Chat.ID, msg.From.ID, transcript)
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	path, err := b.fetcher.Fetch(msg.From.ID, doc.FileID, "file", filepath.Ext(doc.FileName))
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			b.sendText(msg.Chat.ID, "The file is no longer available on Telegram, please send it again.")
			return
		}
		log.Printf("❌ Document download failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not download the file.")
		return
	}

	if !isTextLike(doc.FileName, doc.MimeType) {
		b.sendText(msg.Chat.ID, "📁 File saved. Only text files (txt, md, json) are summarized for now.")
		return
	}

	content, err := readHead(path, maxSummaryBytes)
	if err != nil {
		log.Printf("❌ Document read failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not read the file.")
		return
	}

	// One-shot call: the file body goes to the model once and never
	// enters the per-user window. Only a short marker and the summary
	// are kept for continuity.
	summaryMsgs := []llm.Message{
		{Role: "system", Content: "You are a file summarization assistant."},
		{Role: "user", Content: "Summarize the following content:\n\n" + content},
	}
	resp, err := b.generate(ctx, summaryMsgs)
	if err != nil {
		log.Printf("❌ Summarization failed for %d: %v", msg.From.ID, err)
		b.sendError(msg.Chat.ID, "Could not summarize the file.")
		return
	}

	marker := "user sent file: " + doc.FileName
	b.history.AppendUser(msg.From.ID, marker)
	b.history.AppendAssistant(msg.From.ID, resp.Content)
	b.record(msg.From.ID, marker, resp.Content)
	b.logResponse(resp)
	b.sendText(msg.Chat.ID, resp.Content)
}

func isTextLike(name, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".json":
		return true
	}
	switch mimeType {
	case "text/plain", "text/markdown", "application/json":
		return true
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readHead(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf := make([]byte, limit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(buf[:n]), nil
}
