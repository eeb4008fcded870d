// Package session provides in-memory session storage for the Ark Shepherds
// server.
//
// Manager keeps sessions keyed by a case-insensitive ID. Sessions created
// without an ID get a random 4-character hex one. Create takes a build
// callback so the service layer decides how a session and its engine are
// assembled, while the manager only guarantees the ID is unique.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", func(id string) (*service.Session, error) {
//		return service.NewSession(id, "01_meadow", level, nil, logger)
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// periodically drop idle sessions
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
package session
