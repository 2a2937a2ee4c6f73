// Package api defines wire-format types and converters for the HTTP API and
// the CLI. It translates internal asset records into transport-friendly DTOs
// so consumers can render them without coupling to internal types.
//
// # Key Types
//
// Asset: transport representation of a status record.
//
// AssetStats: counts per lifecycle status plus a total.
//
// DaemonStatus: runtime information including backend selection, store
// statistics, and dependency availability.
//
// EventResponse: result of a trigger endpoint call.
//
// # Converters
//
// FromRecord / FromRecords: assets.Record -> Asset.
//
// FromStats: assets.Stats -> AssetStats with every status present.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses are exposed verbatim. Timestamps use
// RFC3339 with milliseconds in UTC.
package api
