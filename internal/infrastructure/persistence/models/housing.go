package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/domain/housing"
)

// HouseModel is the persistence model for houses
type HouseModel struct {
	BaseModel
	Address    string           `gorm:"type:varchar(255);not null;uniqueIndex"`
	Apartments []ApartmentModel `gorm:"foreignKey:HouseID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (HouseModel) TableName() string {
	return "houses"
}

// ToDomain converts the persistence model to a domain House
func (m *HouseModel) ToDomain() (*housing.House, error) {
	h := &housing.House{
		BaseEntity: m.BaseModel.ToDomain(),
		Address:    m.Address,
	}
	for i := range m.Apartments {
		apt, err := m.Apartments[i].ToDomain()
		if err != nil {
			return nil, err
		}
		h.Apartments = append(h.Apartments, *apt)
	}
	return h, nil
}

// FromDomain populates the persistence model from a domain House
func (m *HouseModel) FromDomain(h *housing.House) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.Address = h.Address
}

// HouseModelFromDomain creates a new persistence model from domain House
func HouseModelFromDomain(h *housing.House) *HouseModel {
	m := &HouseModel{}
	m.FromDomain(h)
	return m
}

// ApartmentModel is the persistence model for apartments
type ApartmentModel struct {
	BaseModel
	HouseID int64              `gorm:"not null;index"`
	Number  *int               `gorm:""`
	Area    decimal.Decimal    `gorm:"type:numeric(7,2);not null"`
	Meters  []MeterModel       `gorm:"foreignKey:ApartmentID;constraint:OnDelete:CASCADE"`
	Bills   []UtilityBillModel `gorm:"foreignKey:ApartmentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ApartmentModel) TableName() string {
	return "apartments"
}

// ToDomain converts the persistence model to a domain Apartment
func (m *ApartmentModel) ToDomain() (*housing.Apartment, error) {
	a := &housing.Apartment{
		BaseEntity: m.BaseModel.ToDomain(),
		HouseID:    m.HouseID,
		Number:     m.Number,
		Area:       m.Area,
	}
	for i := range m.Meters {
		meter, err := m.Meters[i].ToDomain()
		if err != nil {
			return nil, err
		}
		a.Meters = append(a.Meters, *meter)
	}
	return a, nil
}

// FromDomain populates the persistence model from a domain Apartment
func (m *ApartmentModel) FromDomain(a *housing.Apartment) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.HouseID = a.HouseID
	m.Number = a.Number
	m.Area = a.Area
}

// ApartmentModelFromDomain creates a new persistence model from domain Apartment
func ApartmentModelFromDomain(a *housing.Apartment) *ApartmentModel {
	m := &ApartmentModel{}
	m.FromDomain(a)
	return m
}

// MeterTypeModel is the persistence model for meter types
type MeterTypeModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Unit string `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (MeterTypeModel) TableName() string {
	return "meter_types"
}

// ToDomain converts the persistence model to a domain MeterType
func (m *MeterTypeModel) ToDomain() *billing.MeterType {
	return &billing.MeterType{ID: m.ID, Name: m.Name, Unit: m.Unit}
}

// MeterTypeModelFromDomain creates a new persistence model from domain MeterType
func MeterTypeModelFromDomain(mt *billing.MeterType) *MeterTypeModel {
	return &MeterTypeModel{ID: mt.ID, Name: mt.Name, Unit: mt.Unit}
}

// MeterModel is the persistence model for meters. Readings live in a JSON
// column keyed by period.
type MeterModel struct {
	BaseModel
	ApartmentID int64          `gorm:"not null;index"`
	MeterNumber string         `gorm:"type:varchar(50);not null;default:''"`
	MeterTypeID int64          `gorm:"not null;index"`
	MeterType   MeterTypeModel `gorm:"foreignKey:MeterTypeID;constraint:OnDelete:RESTRICT"`
	Readings    datatypes.JSON `gorm:"not null"`
	Version     int            `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (MeterModel) TableName() string {
	return "meters"
}

// ToDomain converts the persistence model to a domain Meter
func (m *MeterModel) ToDomain() (*housing.Meter, error) {
	readings, err := DecodeReadings(m.Readings)
	if err != nil {
		return nil, err
	}
	mt := m.MeterType.ToDomain()
	if mt.ID == 0 {
		mt.ID = m.MeterTypeID
	}
	return &housing.Meter{
		BaseEntity:  m.BaseModel.ToDomain(),
		ApartmentID: m.ApartmentID,
		MeterNumber: m.MeterNumber,
		MeterType:   *mt,
		Readings:    readings,
		Version:     m.Version,
	}, nil
}

// FromDomain populates the persistence model from a domain Meter
func (m *MeterModel) FromDomain(meter *housing.Meter) error {
	readings, err := EncodeReadings(meter.Readings)
	if err != nil {
		return err
	}
	m.FromDomainBaseEntity(meter.BaseEntity)
	m.ApartmentID = meter.ApartmentID
	m.MeterNumber = meter.MeterNumber
	m.MeterTypeID = meter.MeterType.ID
	m.Readings = readings
	m.Version = meter.Version
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}

// MeterModelFromDomain creates a new persistence model from domain Meter
func MeterModelFromDomain(meter *housing.Meter) (*MeterModel, error) {
	m := &MeterModel{}
	if err := m.FromDomain(meter); err != nil {
		return nil, err
	}
	return m, nil
}
