// Package entities binds each caregiving entity type to the generic sync
// engine. Every entity has a local row type, a RowSchema for the stores,
// pure mapping functions between row, domain model and remote document,
// and an engine configuration. NewRegistry assembles the engines.
//
// Remote documents live under caregivers/{scopeID}/{collection}. Medication
// logs live under their medication at
// caregivers/{scopeID}/medications/{medicationRemoteID}/logs.
package entities
