// Package domain models air-quality readings for a single monitored location.
//
// # Data Source
//
// Readings come from the Open-Meteo air-quality API, queried by coordinate
// with hourly=us_aqi. The response is a time-aligned pair of arrays
// (hourly.time, hourly.us_aqi). The latest hours are often still null because
// the model has not produced them yet, so the sampler walks the series from
// the end and keeps the first non-null value. See [LatestAQI].
//
// # US AQI Tiers
//
// The service collapses the six EPA bands into four user-facing tiers:
//
//	Good       0–50
//	Moderate   51–100
//	Poor       101–200
//	Very Poor  >200
//
// Two flags are derived independently of the tiers:
//
//	alert      aqi > 150  (the EPA "Unhealthy" boundary)
//	emergency  aqi > 200  (the EPA "Very Unhealthy" boundary)
//
// Poor therefore spans both an alerting (151–200) and a non-alerting
// (101–150) sub-range. Only emergency readings produce an [AlertRecord].
//
// # Location
//
// The monitored coordinate is either a user override (location.json shape,
// every field nullable) or the IP-derived location of the host. See
// [Override] and package location.
package domain
