// Package jobs holds background work running independently of inbound
// traffic.
package jobs

import (
	"log"
	"sync"
	"time"

	"github.com/distrivet/asistente-backend/internal/config"
	"github.com/distrivet/asistente-backend/internal/services"
	"github.com/distrivet/asistente-backend/internal/storage"
)

// FeedbackJob periodically solicits satisfaction feedback from verified
// customers that went quiet.
type FeedbackJob struct {
	store     storage.Store
	messenger services.Messenger
	cfg       config.FeedbackConfig

	tickMu    sync.Mutex // single-flight: an overlapping tick is skipped
	isRunning bool
	stop      chan struct{}
}

// NewFeedbackJob creates the scheduler.
func NewFeedbackJob(store storage.Store, messenger services.Messenger, cfg config.FeedbackConfig) *FeedbackJob {
	return &FeedbackJob{
		store:     store,
		messenger: messenger,
		cfg:       cfg,
		stop:      make(chan struct{}),
	}
}

// Start begins the periodic scan.
func (j *FeedbackJob) Start() {
	if j.isRunning {
		log.Println("Feedback job already running")
		return
	}
	j.isRunning = true

	go func() {
		ticker := time.NewTicker(j.cfg.ScanInterval)
		defer ticker.Stop()

		log.Printf("Feedback job started (every %s, inactivity %s, cooldown %s)",
			j.cfg.ScanInterval, j.cfg.InactivityThreshold, j.cfg.Cooldown)

		for {
			select {
			case <-ticker.C:
				j.Tick(time.Now())
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop halts the scan loop.
func (j *FeedbackJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	log.Println("Feedback job stopped")
}

// Tick runs one scan. If the previous tick is still in flight the whole
// tick is skipped: zero reads, zero sends.
func (j *FeedbackJob) Tick(now time.Time) {
	if !j.tickMu.TryLock() {
		log.Println("Feedback tick still in flight, skipping")
		return
	}
	defer j.tickMu.Unlock()

	candidates, err := j.store.GetFeedbackCandidates(now, j.cfg.InactivityThreshold, j.cfg.Cooldown, j.cfg.ResponseWindow)
	if err != nil {
		log.Printf("Feedback scan failed: %v", err)
		return
	}

	sent := 0
	for _, session := range candidates {
		if err := j.prompt(session.Phone); err != nil {
			log.Printf("Failed to send feedback prompt to %s: %v", session.Phone, err)
			continue
		}
		// bookkeeping right after the send: a crash between the two is
		// the only duplicate-prompt window, accepted as bounded risk
		if err := j.store.SetFeedbackPromptAt(session.Phone, now); err != nil {
			log.Printf("Failed to record feedback prompt for %s: %v", session.Phone, err)
		}
		sent++
	}

	if sent > 0 {
		log.Printf("Feedback prompts sent: %d", sent)
	}
}

func (j *FeedbackJob) prompt(phone string) error {
	options := []services.ButtonOption{
		{ID: "fb_positivo", Title: "👍 Muy útil"},
		{ID: "fb_mejorar", Title: "Puede mejorar"},
		{ID: "fb_comentario", Title: "Dejar comentario"},
	}
	return j.messenger.SendButtons(phone,
		"¿Qué te pareció el asistente hasta ahora? Tu opinión nos ayuda a mejorar.", options)
}
