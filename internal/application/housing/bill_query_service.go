package housing

import (
	"context"
	"time"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
	"github.com/communal/backend/internal/domain/shared"
)

// BillQueryService reads stored bills
type BillQueryService struct {
	houses     housing.HouseRepository
	apartments housing.ApartmentRepository
	bills      billing.UtilityBillRepository
}

// NewBillQueryService creates a new BillQueryService
func NewBillQueryService(houses housing.HouseRepository, apartments housing.ApartmentRepository, bills billing.UtilityBillRepository) *BillQueryService {
	return &BillQueryService{
		houses:     houses,
		apartments: apartments,
		bills:      bills,
	}
}

// ListBills returns the stored bills of an apartment, newest month first
func (s *BillQueryService) ListBills(ctx context.Context, apartmentID int64) ([]BillResponse, error) {
	if _, err := s.apartments.FindByID(ctx, apartmentID); err != nil {
		return nil, err
	}
	bills, err := s.bills.FindByApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	out := make([]BillResponse, len(bills))
	for i := range bills {
		out[i] = ToBillResponse(&bills[i])
	}
	return out, nil
}

// HouseStatement assembles the stored bills of a house for period in
// apartment order. Apartments without a bill for the period are left out;
// a period with no bills at all is NOT_FOUND.
func (s *BillQueryService) HouseStatement(ctx context.Context, houseID int64, period billing.Period) (*billing.Statement, error) {
	house, err := s.houses.FindByID(ctx, houseID)
	if err != nil {
		return nil, err
	}
	apartments, err := s.apartments.FindByHouse(ctx, houseID)
	if err != nil {
		return nil, err
	}
	bills, err := s.bills.FindByHouseAndMonth(ctx, houseID, period)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, shared.NotFoundf("No bills for house %d in %s", houseID, period)
	}

	byApartment := make(map[int64]*billing.UtilityBill, len(bills))
	for i := range bills {
		byApartment[bills[i].ApartmentID] = &bills[i]
	}

	statement := &billing.Statement{
		HouseID:     house.ID,
		Address:     house.Address,
		Period:      period,
		Apartments:  make([]billing.StatementApartment, 0, len(bills)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, apt := range apartments {
		bill, ok := byApartment[apt.ID]
		if !ok {
			continue
		}
		statement.Apartments = append(statement.Apartments, billing.StatementApartment{
			ApartmentID: apt.ID,
			Number:      apt.Number,
			Area:        apt.Area,
			Charge:      bill.Charge,
		})
	}
	return statement, nil
}
