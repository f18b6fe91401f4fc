// Package jobs holds the background workers that run alongside the HTTP
// server: the session sweep ticker and the cron-driven booking reminders.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/repository"
)

// SweepJob periodically retires expired conversation sessions and deletes
// expired web chat sessions. The dispatcher also retires expired sessions
// inline on the next message, so the sweep only covers users who walked
// away mid-flow.
type SweepJob struct {
	sessionRepo repository.SessionRepository
	webChatRepo repository.WebChatSessionRepository
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

func NewSweepJob(
	sessionRepo repository.SessionRepository,
	webChatRepo repository.WebChatSessionRepository,
	interval time.Duration,
) *SweepJob {
	return &SweepJob{
		sessionRepo: sessionRepo,
		webChatRepo: webChatRepo,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

// Stop signals the loop to exit and waits for the in-flight sweep to
// finish.
func (j *SweepJob) Stop() {
	close(j.stopCh)
	<-j.doneCh
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopCh:
			return
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := j.sessionRepo.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("session sweep failed")
	} else if expired > 0 {
		log.Info().Int64("count", expired).Msg("expired conversation sessions retired")
	}

	deleted, err := j.webChatRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("web chat session cleanup failed")
	} else if deleted > 0 {
		log.Info().Int64("count", deleted).Msg("expired web chat sessions deleted")
	}
}
