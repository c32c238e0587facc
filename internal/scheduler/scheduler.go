package scheduler

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically removes stale files from the downloads
// directory. A staged media record whose backing file was purged is
// reported to the user as not found, never as a crash.
type Scheduler struct {
	cron *cron.Cron
	dir  string
	ttl  time.Duration
}

func New(dir string, ttl time.Duration) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		dir:  dir,
		ttl:  ttl,
	}
}

// Start schedules an hourly purge.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("0 * * * *", func() {
		n, err := s.PurgeOnce()
		if err != nil {
			log.Printf("❌ Download purge failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("🧹 Purged %d stale download(s)", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("📅 Scheduler started - downloads older than %v are purged hourly", s.ttl)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	log.Println("📅 Scheduler stopped")
}

// PurgeOnce removes files older than the TTL and reports how many were
// removed. A missing downloads dir is not an error.
func (s *Scheduler) PurgeOnce() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
