// Package housing manages houses, apartments, meters and their reference data.
package housing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/logger"
)

// maxReadingAttempts bounds the reload loop of AddReading under concurrent writes
const maxReadingAttempts = 3

// HousingService handles houses, apartments, meters and meter types
type HousingService struct {
	houses     housing.HouseRepository
	apartments housing.ApartmentRepository
	meters     housing.MeterRepository
	meterTypes billing.MeterTypeRepository
	logger     *zap.Logger
}

// NewHousingService creates a new HousingService
func NewHousingService(
	houses housing.HouseRepository,
	apartments housing.ApartmentRepository,
	meters housing.MeterRepository,
	meterTypes billing.MeterTypeRepository,
	logger *zap.Logger,
) *HousingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HousingService{
		houses:     houses,
		apartments: apartments,
		meters:     meters,
		meterTypes: meterTypes,
		logger:     logger,
	}
}

// CreateHouse registers a house. Addresses are unique after normalization.
func (s *HousingService) CreateHouse(ctx context.Context, req CreateHouseRequest) (*HouseResponse, error) {
	house, err := housing.NewHouse(req.Address)
	if err != nil {
		return nil, err
	}

	// Check if address already exists
	existing, err := s.houses.FindByAddress(ctx, house.Address)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "House with this address already exists")
	}

	if err := s.houses.Save(ctx, house); err != nil {
		return nil, err
	}

	logger.FromContextOr(ctx, s.logger).Info("House created",
		zap.Int64("house_id", house.ID),
		zap.String("address", house.Address),
	)
	response := ToHouseResponse(house)
	return &response, nil
}

// ListHouses returns one page of houses
func (s *HousingService) ListHouses(ctx context.Context, filter HouseListFilter) (shared.Paginated[HouseResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	domainFilter = domainFilter.Normalize()

	houses, total, err := s.houses.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[HouseResponse]{}, err
	}
	return shared.NewPaginated(ToHouseResponses(houses), total, domainFilter.Page, domainFilter.PageSize), nil
}

// GetHouse returns a house with its apartments and their meters
func (s *HousingService) GetHouse(ctx context.Context, id int64) (*HouseDetailResponse, error) {
	house, err := s.houses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apartments, err := s.apartments.FindByHouse(ctx, id)
	if err != nil {
		return nil, err
	}
	meters, err := s.meters.FindByHouse(ctx, id)
	if err != nil {
		return nil, err
	}

	byApartment := make(map[int64][]housing.Meter, len(apartments))
	for _, m := range meters {
		byApartment[m.ApartmentID] = append(byApartment[m.ApartmentID], m)
	}
	for i := range apartments {
		apartments[i].Meters = byApartment[apartments[i].ID]
	}

	return &HouseDetailResponse{
		HouseResponse: ToHouseResponse(house),
		Apartments:    ToApartmentResponses(apartments),
	}, nil
}

// CreateApartment adds an apartment to an existing house
func (s *HousingService) CreateApartment(ctx context.Context, req CreateApartmentRequest) (*ApartmentResponse, error) {
	if err := s.requireHouse(ctx, req.HouseID); err != nil {
		return nil, err
	}

	apartment, err := housing.NewApartment(req.HouseID, req.Number, req.Area)
	if err != nil {
		return nil, err
	}
	if err := s.apartments.Save(ctx, apartment); err != nil {
		return nil, err
	}

	logger.FromContextOr(ctx, s.logger).Info("Apartment created",
		zap.Int64("house_id", apartment.HouseID),
		zap.Int64("apartment_id", apartment.ID),
	)
	response := ToApartmentResponse(apartment)
	return &response, nil
}

// GetApartment returns an apartment with its meters
func (s *HousingService) GetApartment(ctx context.Context, id int64) (*ApartmentResponse, error) {
	apartment, err := s.apartments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	meters, err := s.meters.FindByApartment(ctx, id)
	if err != nil {
		return nil, err
	}
	apartment.Meters = meters

	response := ToApartmentResponse(apartment)
	return &response, nil
}

// ListApartments returns the apartments of a house in id order
func (s *HousingService) ListApartments(ctx context.Context, houseID int64) ([]ApartmentResponse, error) {
	if err := s.requireHouse(ctx, houseID); err != nil {
		return nil, err
	}
	apartments, err := s.apartments.FindByHouse(ctx, houseID)
	if err != nil {
		return nil, err
	}
	return ToApartmentResponses(apartments), nil
}

// ListMetersByHouse returns every meter in a house
func (s *HousingService) ListMetersByHouse(ctx context.Context, houseID int64) ([]MeterResponse, error) {
	if err := s.requireHouse(ctx, houseID); err != nil {
		return nil, err
	}
	meters, err := s.meters.FindByHouse(ctx, houseID)
	if err != nil {
		return nil, err
	}
	return ToMeterResponses(meters), nil
}

// ListMetersByApartment returns the meters of an apartment
func (s *HousingService) ListMetersByApartment(ctx context.Context, apartmentID int64) ([]MeterResponse, error) {
	if _, err := s.apartments.FindByID(ctx, apartmentID); err != nil {
		return nil, err
	}
	meters, err := s.meters.FindByApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	return ToMeterResponses(meters), nil
}

// GetMeter returns one meter with its readings
func (s *HousingService) GetMeter(ctx context.Context, id int64) (*MeterResponse, error) {
	meter, err := s.meters.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToMeterResponse(meter)
	return &response, nil
}

// CreateMeter installs a meter in an apartment, optionally with initial readings
func (s *HousingService) CreateMeter(ctx context.Context, req CreateMeterRequest) (*MeterResponse, error) {
	if _, err := s.apartments.FindByID(ctx, req.ApartmentID); err != nil {
		return nil, err
	}
	meterType, err := s.meterTypes.FindByID(ctx, req.MeterTypeID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.InvalidInputf("Meter type %d does not exist", req.MeterTypeID)
		}
		return nil, err
	}

	meter, err := housing.NewMeter(req.ApartmentID, req.MeterNumber, *meterType, req.Readings)
	if err != nil {
		return nil, err
	}
	if err := s.meters.Save(ctx, meter); err != nil {
		return nil, err
	}

	logger.FromContextOr(ctx, s.logger).Info("Meter created",
		zap.Int64("apartment_id", meter.ApartmentID),
		zap.Int64("meter_id", meter.ID),
		zap.Int("readings", len(meter.Readings)),
	)
	response := ToMeterResponse(meter)
	return &response, nil
}

// AddReading appends a reading. Readings are append-only: an existing period
// or one before the earliest recorded period is rejected.
func (s *HousingService) AddReading(ctx context.Context, meterID int64, req AddReadingRequest) (*MeterResponse, error) {
	if req.Period.IsZero() {
		return nil, shared.InvalidInputf("Reading period is required")
	}
	var meter *housing.Meter
	for attempt := 1; ; attempt++ {
		var err error
		meter, err = s.meters.FindByID(ctx, meterID)
		if err != nil {
			return nil, err
		}
		if err := meter.AddReading(req.Period, req.Value); err != nil {
			return nil, err
		}
		err = s.meters.SaveReadings(ctx, meter)
		if err == nil {
			break
		}
		// Another writer got in first: reload so the append-only check sees its reading
		if errors.Is(err, shared.ErrConcurrentModification) && attempt < maxReadingAttempts {
			continue
		}
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}

	logger.FromContextOr(ctx, s.logger).Info("Reading recorded",
		zap.Int64("meter_id", meter.ID),
		zap.String("period", req.Period.String()),
	)
	response := ToMeterResponse(meter)
	return &response, nil
}

// ListMeterTypes returns every meter type
func (s *HousingService) ListMeterTypes(ctx context.Context) ([]MeterTypeResponse, error) {
	types, err := s.meterTypes.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MeterTypeResponse, len(types))
	for i := range types {
		out[i] = ToMeterTypeResponse(&types[i])
	}
	return out, nil
}

// CreateMeterType adds a meter type. Names are unique.
func (s *HousingService) CreateMeterType(ctx context.Context, req CreateMeterTypeRequest) (*MeterTypeResponse, error) {
	mt, err := billing.NewMeterType(req.Name, req.Unit)
	if err != nil {
		return nil, err
	}

	existing, err := s.meterTypes.FindByName(ctx, mt.Name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Meter type with this name already exists")
	}

	if err := s.meterTypes.Save(ctx, mt); err != nil {
		return nil, err
	}
	response := ToMeterTypeResponse(mt)
	return &response, nil
}

func (s *HousingService) requireHouse(ctx context.Context, houseID int64) error {
	exists, err := s.houses.ExistsByID(ctx, houseID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NotFoundf("House %d not found", houseID)
	}
	return nil
}
