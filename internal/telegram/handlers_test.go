package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chat-relay/internal/audio"
	"chat-relay/internal/files"
	"chat-relay/internal/llm"
	"chat-relay/internal/media"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func docMsg(userID int64, fileName, mimeType string) *tgbotapi.Message {
	m := textMsg(userID, "")
	m.Document = &tgbotapi.Document{FileID: "doc-file-id", FileName: fileName, MimeType: mimeType}
	return m
}

func TestDocument_TextFileSummarizedOneShot(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "meeting notes about the roadmap")
	client := &fakeLLM{resp: llm.Response{Content: "a short summary"}}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{path: path}

	// Pre-existing chat context must not be sent with the file.
	b.history.AppendUser(1, "earlier question")
	b.history.AppendAssistant(1, "earlier answer")

	b.handleIncomingMessage(context.Background(), docMsg(1, "notes.txt", "text/plain"))

	if client.calls != 1 {
		t.Fatalf("gateway calls = %d, want 1", client.calls)
	}
	if len(client.last) != 2 {
		t.Fatalf("summarization must be one-shot (system + content), got %d messages", len(client.last))
	}
	if client.last[0].Role != "system" {
		t.Fatalf("first summarization message should be the system instruction: %+v", client.last[0])
	}
	if !strings.Contains(client.last[1].Content, "meeting notes about the roadmap") {
		t.Fatalf("file content missing from request: %q", client.last[1].Content)
	}

	h := b.history.Get(1)
	if len(h) != 4 {
		t.Fatalf("history length = %d, want marker + summary appended", len(h))
	}
	if h[2].Content != "user sent file: notes.txt" {
		t.Fatalf("marker turn wrong: %+v", h[2])
	}
	if h[3].Role != "assistant" || h[3].Content != "a short summary" {
		t.Fatalf("summary turn wrong: %+v", h[3])
	}
	if fs.sent[len(fs.sent)-1] != "a short summary" {
		t.Fatalf("summary not delivered: %+v", fs.sent)
	}
}

func TestDocument_NonTextSavedNotSummarized(t *testing.T) {
	path := writeTempFile(t, "archive.zip", "PK\x03\x04")
	client := &fakeLLM{resp: llm.Response{Content: "should not be asked"}}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{path: path}

	b.handleIncomingMessage(context.Background(), docMsg(2, "archive.zip", "application/zip"))

	if client.calls != 0 {
		t.Fatalf("non-text document must not reach the gateway, got %d calls", client.calls)
	}
	if len(b.history.Get(2)) != 0 {
		t.Fatalf("non-text document must not touch history")
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "File saved") {
		t.Fatalf("expected saved-not-summarized notice, got %+v", fs.sent)
	}
}

func TestDocument_ExpiredFileRef(t *testing.T) {
	client := &fakeLLM{}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{err: files.ErrNotFound}

	b.handleIncomingMessage(context.Background(), docMsg(3, "notes.txt", "text/plain"))

	if client.calls != 0 {
		t.Fatalf("expired file must not reach the gateway")
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "no longer available") {
		t.Fatalf("expected expiry notice, got %+v", fs.sent)
	}
}

func TestVoice_TranscriptEntersChatPath(t *testing.T) {
	wav := writeTempFile(t, "voice.wav", "riff")
	client := &fakeLLM{resp: llm.Response{Content: "spoken answer"}}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{path: "voice.ogg"}
	b.converter = fakeConverter{path: wav}
	b.transcriber = fakeTranscriber{text: "what is the weather"}

	m := textMsg(10, "")
	m.Voice = &tgbotapi.Voice{FileID: "voice-id"}
	b.handleIncomingMessage(context.Background(), m)

	h := b.history.Get(10)
	if len(h) != 2 || h[0].Content != "what is the weather" || h[1].Content != "spoken answer" {
		t.Fatalf("transcript did not run the chat path: %+v", h)
	}

	var echoed bool
	for _, s := range fs.sent {
		if strings.Contains(s, "🗣️ You said: what is the weather") {
			echoed = true
		}
	}
	if !echoed {
		t.Fatalf("transcript echo missing: %+v", fs.sent)
	}
	if fs.sent[len(fs.sent)-1] != "spoken answer" {
		t.Fatalf("assistant reply not delivered last: %+v", fs.sent)
	}
}

func TestVoice_ConversionFailureLeavesHistoryAlone(t *testing.T) {
	client := &fakeLLM{}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{path: "voice.ogg"}
	b.converter = fakeConverter{err: &audio.ConversionError{Src: "voice.ogg", Err: errors.New("ffmpeg exit 1")}}
	b.transcriber = fakeTranscriber{text: "unused"}

	m := textMsg(11, "")
	m.Voice = &tgbotapi.Voice{FileID: "voice-id"}
	b.handleIncomingMessage(context.Background(), m)

	if client.calls != 0 {
		t.Fatalf("failed conversion must not reach the gateway")
	}
	if len(b.history.Get(11)) != 0 {
		t.Fatalf("failed conversion must not touch history")
	}
	last := fs.sent[len(fs.sent)-1]
	if !strings.HasPrefix(last, errPrefix) {
		t.Fatalf("error reply missing prefix: %q", last)
	}
}

func TestVoice_TranscriberNotConfigured(t *testing.T) {
	client := &fakeLLM{}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{path: "voice.ogg"}

	m := textMsg(12, "")
	m.Voice = &tgbotapi.Voice{FileID: "voice-id"}
	b.handleIncomingMessage(context.Background(), m)

	if len(fs.sent) != 1 || !strings.HasPrefix(fs.sent[0], errPrefix) {
		t.Fatalf("expected configuration error, got %+v", fs.sent)
	}
}

func TestPhoto_StagedAndAnalyzePrompted(t *testing.T) {
	img := writeTempFile(t, "image.jpg", "jpeg-bytes")
	client := &fakeLLM{resp: llm.Response{Content: "guidance"}}
	b, fs := newTestBot(client)
	b.fetcher = fakeFetcher{path: img}

	m := textMsg(20, "")
	m.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	b.handleIncomingMessage(context.Background(), m)

	rec, ok := b.stager.Staged(20, media.KindImage)
	if !ok || rec.Path != img {
		t.Fatalf("photo not staged: %+v ok=%v", rec, ok)
	}
	if !strings.Contains(fs.sent[0], "/analyze") {
		t.Fatalf("user not prompted to analyze: %+v", fs.sent)
	}

	b.handleIncomingMessage(context.Background(), cmdMsg(20, "/analyze"))

	if client.calls != 1 {
		t.Fatalf("analyze should call the gateway once, got %d", client.calls)
	}
	lastReq := client.last[len(client.last)-1]
	if !strings.Contains(lastReq.Content, "no binary image data") {
		t.Fatalf("degraded-mode prompt missing: %q", lastReq.Content)
	}
	h := b.history.Get(20)
	if len(h) != 3 || h[2].Role != "assistant" || h[2].Content != "guidance" {
		t.Fatalf("analysis turns not recorded: %+v", h)
	}
}

func TestAnalyze_NothingStaged(t *testing.T) {
	client := &fakeLLM{}
	b, fs := newTestBot(client)

	b.handleIncomingMessage(context.Background(), cmdMsg(21, "/analyze"))

	if client.calls != 0 {
		t.Fatalf("analyze without a photo must not reach the gateway")
	}
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], "No saved photo") {
		t.Fatalf("expected not-found guidance, got %+v", fs.sent)
	}
}

func TestAnalyze_StaleStagedPath(t *testing.T) {
	client := &fakeLLM{}
	b, fs := newTestBot(client)
	b.stager.Stage(22, media.KindImage, filepath.Join(t.TempDir(), "gone.jpg"))

	b.handleIncomingMessage(context.Background(), cmdMsg(22, "/analyze"))

	if client.calls != 0 {
		t.Fatalf("stale staged path must not reach the gateway")
	}
	if !strings.Contains(fs.sent[0], "No saved photo") {
		t.Fatalf("stale path must read as not found, got %+v", fs.sent)
	}
}

func TestReadHead_CapsAtLimit(t *testing.T) {
	p := writeTempFile(t, "big.txt", strings.Repeat("a", 100))
	got, err := readHead(p, 10)
	if err != nil {
		t.Fatalf("readHead: %v", err)
	}
	if got != strings.Repeat("a", 10) {
		t.Fatalf("readHead returned %d bytes, want 10", len(got))
	}
}

func TestIsTextLike(t *testing.T) {
	cases := []struct {
		name string
		mime string
		want bool
	}{
		{"notes.txt", "", true},
		{"README.md", "", true},
		{"data.JSON", "", true},
		{"noext", "text/plain", true},
		{"noext", "text/markdown", true},
		{"archive.zip", "application/zip", false},
		{"photo.jpg", "image/jpeg", false},
	}
	for _, c := range cases {
		if got := isTextLike(c.name, c.mime); got != c.want {
			t.Fatalf("isTextLike(%q, %q) = %v, want %v", c.name, c.mime, got, c.want)
		}
	}
}
