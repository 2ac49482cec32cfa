// Package billing holds the pricing model of communal utility bills.
//
// It is responsible for:
//   - Billing periods ("YYYY-MM") and cumulative meter readings keyed by period
//   - Tariffs, either priced per unit of a meter type or per square meter of area
//   - Consumption: the delta against the previous period, or an average of
//     recent deltas when the current reading is missing
//   - Pricing apartments into charges rounded to two places
//
// Key Types:
//   - Tariff: a meter tariff or an area tariff
//   - Pricer: turns an apartment, a period and a tariff index into an ApartmentBill
//   - UtilityBill: the stored bill of one apartment for one month
//   - CalculationProgress: the audit record of one billing run
//
// The housing domain supplies the apartments and meters that are priced here.
package billing
