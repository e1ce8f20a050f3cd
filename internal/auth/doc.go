// Package auth keeps users logged in between requests.
//
// Sessions are cookie based (scs) and persisted in their own SQLite file so
// they survive restarts regardless of which storage backend holds the
// exchange data. The session only remembers the username; every request
// reloads the user from storage.
//
// # Configuration
//
//	AUTH_SESSION_LIFETIME=24h                     # Session duration
//	AUTH_SESSION_DB_PATH=./bookexchange-sessions.db
//	AUTH_SECURE_COOKIES=true                      # HTTPS-only cookies
//	AUTH_CSRF_SECRET=<32 bytes>                   # Enables CSRF protection
//
// # Usage
//
//	sessions, err := auth.NewSessionManager(sessionDB, cfg.Auth)
//	mw := auth.NewMiddleware(store, sessions)
//	router.Use(sessions.SessionLoadSave())
//	api.Use(mw.RequireUser())
//
// Extract the user in handlers:
//
//	user := auth.CurrentUser(c)
package auth
