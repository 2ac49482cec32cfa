package housing

import (
	"context"

	"github.com/communal/backend/internal/domain/shared"
)

// HouseRepository persists houses
type HouseRepository interface {
	FindByID(ctx context.Context, id int64) (*House, error)
	FindByAddress(ctx context.Context, address string) (*House, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]House, int64, error)
	FindAllIDs(ctx context.Context) ([]int64, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Save(ctx context.Context, house *House) error
}

// ApartmentRepository persists apartments. FindByHouse returns apartments in ascending id order.
type ApartmentRepository interface {
	FindByID(ctx context.Context, id int64) (*Apartment, error)
	FindByHouse(ctx context.Context, houseID int64) ([]Apartment, error)
	Save(ctx context.Context, apartment *Apartment) error
}

// MeterRepository persists meters together with their readings
type MeterRepository interface {
	FindByID(ctx context.Context, id int64) (*Meter, error)
	FindByApartment(ctx context.Context, apartmentID int64) ([]Meter, error)
	FindByHouse(ctx context.Context, houseID int64) ([]Meter, error)
	Save(ctx context.Context, meter *Meter) error
	// SaveReadings stores the readings of an existing meter
	SaveReadings(ctx context.Context, meter *Meter) error
}
