package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/config"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
	"github.com/bookline/bot-server-go/internal/util"
)

// ReservationService owns the atomic reserve-or-reject operation. Two
// conversations can reach confirmation for the same slot concurrently, so
// the write itself decides the race: the storage layer's partial unique
// index turns the loser's insert into repository.ErrSlotTaken. The
// pre-check read below is only an optimization to avoid pointless write
// attempts; it is never the guarantee.
type ReservationService struct {
	reservationRepo repository.ReservationRepository
}

func NewReservationService(reservationRepo repository.ReservationRepository) *ReservationService {
	return &ReservationService{reservationRepo: reservationRepo}
}

func (s *ReservationService) Reserve(ctx context.Context, params model.CreateReservationParams) (*model.Reservation, error) {
	booked, err := s.reservationRepo.BookedTimes(ctx, params.BusinessID, params.Date)
	if err == nil {
		for _, t := range booked {
			if t == params.Time {
				return nil, repository.ErrSlotTaken
			}
		}
	}

	if params.Reference == "" {
		params.Reference = util.GenerateReference(config.BookingReferenceLength)
	}

	res, err := s.reservationRepo.Create(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			log.Info().
				Str("businessId", params.BusinessID).
				Str("date", params.Date).
				Str("time", params.Time).
				Msg("reservation lost slot race")
			return nil, repository.ErrSlotTaken
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	log.Info().
		Str("reservationId", res.ID).
		Str("businessId", res.BusinessID).
		Str("reference", res.Reference).
		Str("date", res.Date).
		Str("time", res.Time).
		Msg("reservation created")

	return res, nil
}
