package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/telemetry"
)

// DefaultLockTTL bounds how long one computation may hold the house lock
const DefaultLockTTL = 15 * time.Minute

// BillingServiceConfig holds bill computation settings
type BillingServiceConfig struct {
	Lookback int
	LockTTL  time.Duration
}

// BillingService computes the monthly bills of a house
type BillingService struct {
	txScope TransactionScope
	locker  Locker
	metrics Metrics
	pricer  billing.Pricer
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewBillingService creates a new BillingService. metrics may be nil.
func NewBillingService(txScope TransactionScope, locker Locker, metrics Metrics, cfg BillingServiceConfig, logger *zap.Logger) *BillingService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		txScope: txScope,
		locker:  locker,
		metrics: metrics,
		pricer:  billing.NewPricer(cfg.Lookback),
		lockTTL: cfg.LockTTL,
		logger:  logger,
	}
}

// ComputeBills prices every apartment of the house for the month and stores
// one bill per apartment, all in one transaction. A concurrent computation
// for the same house and month is refused with CONCURRENT_COMPUTATION.
func (s *BillingService) ComputeBills(ctx context.Context, houseID int64, year, month int) ([]billing.ApartmentBill, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "compute_bills")
	defer span.End()

	start := time.Now()
	bills, absent, err := s.computeBills(ctx, span, houseID, year, month)
	outcome := outcomeOf(err)
	s.metrics.RecordRun(ctx, outcome, time.Since(start), len(bills), absent)

	log := logger.FromContextOr(ctx, s.logger).With(
		zap.Int64("house_id", houseID),
		zap.Int("year", year),
		zap.Int("month", month),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Bill computation failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrApartments, len(bills),
		telemetry.SpanAttrAbsentMeters, absent,
	)
	telemetry.SetOK(span)
	log.Info("Bills computed",
		zap.Int("apartments", len(bills)),
		zap.Int("absent_meters", absent),
		zap.Duration("duration", time.Since(start)),
	)
	return bills, nil
}

func (s *BillingService) computeBills(ctx context.Context, span trace.Span, houseID int64, year, month int) ([]billing.ApartmentBill, int, error) {
	if houseID <= 0 {
		return nil, 0, shared.InvalidInputf("House id must be positive")
	}
	period, err := billing.NewPeriod(year, month)
	if err != nil {
		return nil, 0, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrHouseID, houseID,
		telemetry.SpanAttrPeriod, period.String(),
	)

	release, ok, err := s.locker.TryLock(ctx, cache.BillingLockKey(houseID, period), s.lockTTL)
	if err != nil {
		return nil, 0, shared.WrapComputationFailure(fmt.Errorf("failed to acquire billing lock: %w", err))
	}
	if !ok {
		return nil, 0, shared.NewDomainErrorf(shared.CodeConcurrentComputation,
			"Bills for house %d and %s are already being computed", houseID, period)
	}
	defer release()

	var results []billing.ApartmentBill
	absent := 0
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		results, absent = nil, 0

		house, err := repos.HouseRepo().FindByID(ctx, houseID)
		if err != nil {
			return err
		}
		apartments, err := repos.ApartmentRepo().FindByHouse(ctx, houseID)
		if err != nil {
			return fmt.Errorf("failed to load apartments: %w", err)
		}
		meters, err := repos.MeterRepo().FindByHouse(ctx, houseID)
		if err != nil {
			return fmt.Errorf("failed to load meters: %w", err)
		}
		tariffs, err := repos.TariffRepo().FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load tariffs: %w", err)
		}

		idx := billing.IndexTariffs(tariffs)
		ref := billing.HouseRef{ID: house.ID, Address: house.Address}
		byApartment := groupMeters(meters)

		results = make([]billing.ApartmentBill, 0, len(apartments))
		for i := range apartments {
			apt := &apartments[i]
			result := s.pricer.PriceApartment(ref, apt.PricingInput(byApartment[apt.ID]), period, idx)
			if err := repos.BillRepo().Upsert(ctx, result.Bill()); err != nil {
				return fmt.Errorf("failed to store bill of apartment %d: %w", apt.ID, err)
			}
			absent += len(result.AbsentMeters)
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, 0, shared.WrapComputationFailure(err)
	}
	return results, absent, nil
}

func groupMeters(meters []housing.Meter) map[int64][]housing.Meter {
	out := make(map[int64][]housing.Meter)
	for _, m := range meters {
		out[m.ApartmentID] = append(out[m.ApartmentID], m)
	}
	return out
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, shared.ErrNotFound):
		return telemetry.OutcomeNotFound
	case errors.Is(err, shared.ErrConcurrentComputation):
		return telemetry.OutcomeConflict
	case errors.Is(err, shared.ErrInvalidInput):
		return telemetry.OutcomeBadRequest
	default:
		return telemetry.OutcomeFailed
	}
}
