package session

import (
	"context"

	"github.com/dmitrijs2005/clinicsync/internal/client/filestorage"
)

// Logout removes everything the user left on the device. Steps run in
// order and the first failing one stops the rest: private files, then
// preferences, then the onboarding flag, then the database. Reporting
// unsynced records comes first and never fails the logout. A partial file
// wipe is accepted.
func (s *Session) Logout(ctx context.Context) error {
	s.reportPendingRecords(ctx)

	if res := s.deps.Files.ClearAllFiles(ctx); res.Outcome == filestorage.ClearFailure {
		return &LogoutError{Stage: LogoutStageFiles, Err: res.Err}
	} else if res.Outcome == filestorage.ClearPartiallyDeleted {
		s.logger.Warn(ctx, "some private files were not deleted", "files", res.Failed)
	}

	if err := s.deps.Preferences.Clear(ctx); err != nil {
		return &LogoutError{Stage: LogoutStagePreferences, Err: err}
	}
	if err := s.SetOnboardingComplete(ctx); err != nil {
		return &LogoutError{Stage: LogoutStageOnboarding, Err: err}
	}
	if err := s.deps.Store.ClearAll(ctx); err != nil {
		return &LogoutError{Stage: LogoutStageDatabase, Err: err}
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.ClearUserID(ctx)
	}
	s.logger.Info(ctx, "logged out")
	s.states.publish(nil)
	return nil
}

func (s *Session) reportPendingRecords(ctx context.Context) {
	counts, err := s.deps.Store.PendingSyncRecordCounts(ctx)
	if err != nil {
		s.logger.Warn(ctx, "count pending records failed", "error", err)
		return
	}
	if s.deps.Analytics != nil {
		s.deps.Analytics.ReportPendingRecordsFound(ctx, counts)
	}
}
