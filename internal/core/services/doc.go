// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Engine reconciles one entity type with push then pull passes.
// ScopedEngine does the same for entities stored under a parent, and
// Scheduler runs every engine on its interval.
//
// Services are pure Go with no CGO or external dependencies.
package services
