package router

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/communal/backend/internal/interfaces/http/handler"
)

// Handlers bundles the API handlers mounted by APIGroups
type Handlers struct {
	House     *handler.HouseHandler
	Apartment *handler.ApartmentHandler
	Meter     *handler.MeterHandler
	Tariff    *handler.TariffHandler
	Billing   *handler.BillingHandler
	Statement *handler.StatementHandler
}

// APIGroups returns the domain route groups of the billing API. submitGuard
// runs before job submission only, e.g. a rate limiter.
func APIGroups(h Handlers, submitGuard ...gin.HandlerFunc) []RouteRegistrar {
	houses := NewDomainGroup("houses", "/houses").
		GET("", h.House.List).
		POST("", h.House.Create).
		GET("/:id", h.House.Get).
		POST("/:id/calculate_bills", slices.Concat(submitGuard, []gin.HandlerFunc{h.Billing.CalculateBills})...).
		POST("/:id/bills/compute", h.Billing.ComputeBills).
		GET("/:id/progress", h.Billing.Progress).
		GET("/:id/statement", h.Statement.Download)

	apartments := NewDomainGroup("apartments", "/apartments").
		GET("", h.Apartment.List).
		POST("", h.Apartment.Create).
		GET("/:id", h.Apartment.Get).
		GET("/:id/bills", h.Apartment.Bills)

	meters := NewDomainGroup("meters", "/meters").
		GET("", h.Meter.List).
		POST("", h.Meter.Create).
		GET("/house/:house_id", h.Meter.ListByHouse).
		GET("/:id", h.Meter.Get).
		POST("/:id/readings", h.Meter.AddReading)

	meterTypes := NewDomainGroup("meter-types", "/meter-types").
		GET("", h.Meter.ListTypes).
		POST("", h.Meter.CreateType)

	tariffs := NewDomainGroup("tariffs", "/tariffs").
		GET("", h.Tariff.List).
		POST("", h.Tariff.Create).
		GET("/:id", h.Tariff.Get)

	billing := NewDomainGroup("billing", "/billing").
		GET("/jobs/:job_id", h.Billing.PollJob)

	return []RouteRegistrar{houses, apartments, meters, meterTypes, tariffs, billing}
}
