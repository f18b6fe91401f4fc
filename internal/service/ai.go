package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/ai"
	"github.com/bookline/bot-server-go/internal/repository"
)

const (
	fallbackReply = "Sorry, I couldn't process that right now. Please try again in a moment."

	historyTurnLimit = 6
)

// AIService fronts the generative collaborator. Every failure is caught
// here and replaced with a static fallback; callers never see a raw AI
// error.
type AIService struct {
	client       ai.Client
	inboundRepo  repository.InboundMessageRepository
	outboundRepo repository.OutboundMessageRepository
}

func NewAIService(
	client ai.Client,
	inboundRepo repository.InboundMessageRepository,
	outboundRepo repository.OutboundMessageRepository,
) *AIService {
	return &AIService{
		client:       client,
		inboundRepo:  inboundRepo,
		outboundRepo: outboundRepo,
	}
}

// Classify returns a best-effort intent; on failure the message is labelled
// general with zero confidence so the dispatcher simply falls through.
func (s *AIService) Classify(ctx context.Context, businessName, message string) ai.Intent {
	if s.client == nil {
		return ai.Intent{Label: ai.IntentGeneral}
	}
	intent, err := s.client.Classify(ctx, businessName, message)
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed, using general fallback")
		return ai.Intent{Label: ai.IntentGeneral}
	}
	return intent
}

// Reply generates a free-form reply with recent turn history as context.
func (s *AIService) Reply(ctx context.Context, businessName, botID, userKey, message, prevIntent string) string {
	if s.client == nil {
		return fallbackReply
	}

	history := s.recentHistory(ctx, botID, userKey)
	reply, err := s.client.Reply(ctx, businessName, message, prevIntent, history)
	if err != nil || reply == "" {
		log.Warn().Err(err).Msg("reply generation failed, using static fallback")
		return fallbackReply
	}
	return reply
}

// recentHistory interleaves the last few inbound and outbound messages in
// chronological order. History is context, not state: failures here only
// degrade reply quality.
func (s *AIService) recentHistory(ctx context.Context, botID, userKey string) []ai.Turn {
	type stamped struct {
		turn ai.Turn
		at   int64
	}
	var all []stamped

	if inbound, err := s.inboundRepo.FindRecent(ctx, botID, userKey, historyTurnLimit); err == nil {
		for _, m := range inbound {
			all = append(all, stamped{
				turn: ai.Turn{Role: "user", Content: m.Content},
				at:   m.CreatedAt.UnixNano(),
			})
		}
	}
	if outbound, err := s.outboundRepo.FindRecent(ctx, botID, userKey, historyTurnLimit); err == nil {
		for _, m := range outbound {
			all = append(all, stamped{
				turn: ai.Turn{Role: "assistant", Content: m.Content},
				at:   m.CreatedAt.UnixNano(),
			})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })

	if len(all) > historyTurnLimit {
		all = all[len(all)-historyTurnLimit:]
	}
	turns := make([]ai.Turn, len(all))
	for i, s := range all {
		turns[i] = s.turn
	}
	return turns
}
