// Package domain defines the core business entities for caresync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Care entities: CareRecipient, HealthRecord, Medication, MedicationLog,
//     Task, CalendarEvent, Note, Contact, InsurancePolicy
//   - IdentityEntry: the association of a local row with a remote document
//   - SyncResult: the Success / PartialSuccess / Failure outcome of one sync
//   - DomainError: a classified failure with a retry policy
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
