// Package services – HistoryService
//
// This file implements search history recording. A Recorder appends one
// normalized query to a capped log; there are two implementations, one per
// owner kind:
//
//   - userRecorder appends to an identity's personal history (HISTORY_LIMIT)
//   - guestRecorder appends to the shared anonymous log (GUEST_LOG_LIMIT)
//
// Both go through the same capped-append routine in the repo layer, which
// inserts and trims inside one transaction, so no reader ever sees a log
// over its cap.
//
// Persistence failures are counted in history_record_failures_total and
// returned as ErrPersistence; callers on the search path may ignore them.
package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/repo"
	"github.com/tbourn/go-estate-backend/internal/search"
)

var historyRecordFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "history_record_failures_total",
		Help: "Search history writes that failed to persist.",
	},
	[]string{"target"},
)

func init() {
	prometheus.MustRegister(historyRecordFailures)
}

// Recorder appends a query to a capped search log.
type Recorder interface {
	Record(ctx context.Context, query string) error
}

// HistoryService hands out recorders and reads personal history.
type HistoryService struct {
	DB         *gorm.DB
	UserLimit  int // newest entries kept per identity
	GuestLimit int // newest entries kept in the guest log
	Log        zerolog.Logger
}

// NewHistoryService returns a HistoryService with the given caps.
func NewHistoryService(db *gorm.DB, userLimit, guestLimit int) *HistoryService {
	return &HistoryService{DB: db, UserLimit: userLimit, GuestLimit: guestLimit, Log: log.Logger}
}

// For picks the recorder for identity; nil means anonymous.
func (s *HistoryService) For(identity *domain.User) Recorder {
	if identity == nil {
		return guestRecorder{s: s}
	}
	return userRecorder{s: s, userID: identity.ID}
}

type userRecorder struct {
	s      *HistoryService
	userID string
}

func (r userRecorder) Record(ctx context.Context, query string) error {
	return r.s.record(ctx, "user", query, func(ctx context.Context, q string) error {
		_, err := repo.AppendUserSearch(ctx, r.s.DB, r.userID, q, r.s.UserLimit)
		return err
	})
}

type guestRecorder struct {
	s *HistoryService
}

func (r guestRecorder) Record(ctx context.Context, query string) error {
	return r.s.record(ctx, "guest", query, func(ctx context.Context, q string) error {
		_, err := repo.AppendGuestSearch(ctx, r.s.DB, q, r.s.GuestLimit)
		return err
	})
}

// record is the part both recorders share: normalize, append, account.
func (s *HistoryService) record(ctx context.Context, target, query string, appendFn func(context.Context, string) error) error {
	ctx, span := otel.Tracer("services/HistoryService").Start(ctx, "Record")
	defer span.End()
	span.SetAttributes(attribute.String("history.target", target))

	q, err := search.NormalizeQuery(query)
	if err != nil {
		if errors.Is(err, search.ErrQueryTooLong) {
			return invalid("query", "must be at most 2000 characters")
		}
		return invalid("query", "is required")
	}

	if err := appendFn(ctx, q); err != nil {
		historyRecordFailures.WithLabelValues(target).Inc()
		s.Log.Error().Err(err).Str("target", target).Msg("search history write failed")
		return persistence("record search", err)
	}
	return nil
}

// History returns userID's retained queries, oldest first.
func (s *HistoryService) History(ctx context.Context, userID string) ([]domain.SearchRecord, error) {
	out, err := repo.ListUserSearches(ctx, s.DB, userID)
	if err != nil {
		return nil, persistence("list history", err)
	}
	if out == nil {
		out = []domain.SearchRecord{}
	}
	return out, nil
}

// Recent returns up to n of userID's latest queries, newest last.
func (s *HistoryService) Recent(ctx context.Context, userID string, n int) ([]string, error) {
	out, err := repo.RecentUserQueries(ctx, s.DB, userID, n)
	if err != nil {
		return nil, persistence("recent history", err)
	}
	return out, nil
}
