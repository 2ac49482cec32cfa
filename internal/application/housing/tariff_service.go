package housing

import (
	"context"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/shared"
)

// TariffService handles tariffs
type TariffService struct {
	tariffs    billing.TariffRepository
	meterTypes billing.MeterTypeRepository
}

// NewTariffService creates a new TariffService
func NewTariffService(tariffs billing.TariffRepository, meterTypes billing.MeterTypeRepository) *TariffService {
	return &TariffService{
		tariffs:    tariffs,
		meterTypes: meterTypes,
	}
}

// CreateTariff creates a meter or area tariff. A meter type carries at most
// one tariff, and area tariff names are unique.
func (s *TariffService) CreateTariff(ctx context.Context, req CreateTariffRequest) (*TariffResponse, error) {
	var (
		tariff *billing.Tariff
		err    error
	)

	if req.MeterTypeID != nil {
		if req.CustomName != "" {
			return nil, shared.InvalidInputf("Tariff cannot have both a meter type and a custom name")
		}
		if req.Unit != "" {
			return nil, shared.InvalidInputf("Meter tariff inherits its unit from the meter type and cannot set one")
		}
		meterType, err := s.meterTypes.FindByID(ctx, *req.MeterTypeID)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.InvalidInputf("Meter type %d does not exist", *req.MeterTypeID)
			}
			return nil, err
		}
		exists, err := s.tariffs.ExistsForMeterType(ctx, meterType.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Meter type %q already has a tariff", meterType.Name)
		}
		tariff, err = billing.NewMeterTariff(meterType, req.PricePerUnit)
		if err != nil {
			return nil, err
		}
	} else {
		tariff, err = billing.NewAreaTariff(req.CustomName, req.Unit, req.PricePerUnit)
		if err != nil {
			return nil, err
		}
		exists, err := s.tariffs.ExistsForName(ctx, tariff.CustomName)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Tariff %q already exists", tariff.CustomName)
		}
	}

	if err := s.tariffs.Save(ctx, tariff); err != nil {
		return nil, err
	}
	response := ToTariffResponse(tariff)
	return &response, nil
}

// ListTariffs returns all tariffs in id order
func (s *TariffService) ListTariffs(ctx context.Context) ([]TariffResponse, error) {
	tariffs, err := s.tariffs.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TariffResponse, len(tariffs))
	for i, t := range tariffs {
		out[i] = ToTariffResponse(t)
	}
	return out, nil
}

// GetTariff returns one tariff
func (s *TariffService) GetTariff(ctx context.Context, id int64) (*TariffResponse, error) {
	tariff, err := s.tariffs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTariffResponse(tariff)
	return &response, nil
}
