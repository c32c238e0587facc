package files

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// ErrNotFound means the transport no longer has the referenced file.
var ErrNotFound = errors.New("file not found or expired")

// Fetcher resolves a transport file reference to a local path. The ext
// must include the leading dot.
type Fetcher interface {
	Fetch(userID int64, fileID, prefix, ext string) (string, error)
}

// TelegramFetcher downloads files through the Bot API file endpoint
// into a local downloads directory.
type TelegramFetcher struct {
	api *tgbotapi.BotAPI
	dir string
}

func NewTelegramFetcher(api *tgbotapi.BotAPI, dir string) (*TelegramFetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir: %w", err)
	}
	return &TelegramFetcher{api: api, dir: dir}, nil
}

func (f *TelegramFetcher) Fetch(userID int64, fileID, prefix, ext string) (string, error) {
	tf, err := f.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get file %s: %w", fileID, err)
	}

	resp, err := http.Get(tf.Link(f.api.Token))
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	name := fmt.Sprintf("%s_%d_%s%s", prefix, userID, uuid.NewString(), ext)
	path := filepath.Join(f.dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
