// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel shared by every table
// - housing.go: houses, apartments, meter types and meters
// - billing.go: tariffs, utility bills and calculation progress
// - json.go: codecs for the readings and charge JSON columns
package models
