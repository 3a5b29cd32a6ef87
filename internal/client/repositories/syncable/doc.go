// Package syncable implements the repository shared by every entity type the
// sync engine moves: patients, blood pressure measurements, prescriptions,
// appointments and medical histories.
//
// A concrete repository is composed from a Schema describing the entity's
// own columns. The common columns (id, sync_status, created_at, updated_at,
// deleted_at) and every status transition are handled here, so entity
// packages only add their domain queries on top.
//
// # Status transitions
//
//   - Save stores records with the status they carry (PENDING for local
//     edits, DONE for server-confirmed data).
//   - SetSyncStatus moves every record in one status to another.
//   - SetSyncStatusForIDs moves the named records; an empty id set is a
//     precondition failure, never a full-table update.
//   - MergeWithRemote writes server copies with DONE, but only over local
//     records that CanBeOverriddenByServerCopy allows. The check and the
//     write share one transaction per batch.
//   - SoftDelete sets deleted_at and flips the record back to PENDING.
package syncable
