package service

import (
	"context"
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
	"github.com/tickerplot/nsepulse/internal/ledger"
	"github.com/tickerplot/nsepulse/internal/storage"
)

// HistoryService defines the read-side business logic over ingested data.
type HistoryService interface {
	// GetDailyHistory returns a symbol's records, optionally bounded by an
	// inclusive date range, ascending by date.
	GetDailyHistory(ctx context.Context, symbol string, startDate, endDate *time.Time) ([]models.DailyRecord, error)

	// GetAttempt returns the ledger row for a date, nil when none exists.
	GetAttempt(ctx context.Context, date time.Time) (*models.DownloadAttempt, error)
}

type historyService struct {
	repo   storage.HistoryRepository
	ledger ledger.Ledger
}

func NewHistoryService(repo storage.HistoryRepository, ledger ledger.Ledger) HistoryService {
	return &historyService{repo: repo, ledger: ledger}
}

func (s *historyService) GetDailyHistory(ctx context.Context, symbol string, startDate, endDate *time.Time) ([]models.DailyRecord, error) {
	return s.repo.GetDailyHistory(symbol, startDate, endDate)
}

func (s *historyService) GetAttempt(ctx context.Context, date time.Time) (*models.DownloadAttempt, error) {
	return s.ledger.Get(date)
}
