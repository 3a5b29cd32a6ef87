package syncable

import "github.com/dmitrijs2005/clinicsync/internal/client/models"

// CanBeOverriddenByServerCopy decides whether an incoming server copy may
// replace the local record. local is nil when no local record exists.
//
// Unsynced local edits (PENDING, IN_FLIGHT) always win until pushed. INVALID
// records were rejected by the server, so its copy is authoritative.
func CanBeOverriddenByServerCopy(local *models.SyncStatus) bool {
	if local == nil {
		return true
	}
	switch *local {
	case models.SyncStatusDone, models.SyncStatusInvalid:
		return true
	default:
		return false
	}
}
