// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - LocalStore: CRUD over the embedded store for one entity type
//   - RemoteStore: upsert-merge and active-document queries on the remote store
//   - IdentityMapStore: local id to remote id associations
//   - SyncStateStore: last successful sync per entity type and scope
//   - SchedulerStore: scheduled task state and run history
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
//   - IncrementalLocalStore: lets the engine skip rows unchanged since the
//     last sync. Without it the engine falls back to a full scan.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
