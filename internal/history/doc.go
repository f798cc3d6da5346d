// Package history keeps an append-only audit trail of light state changes.
//
// Every snapshot a light publishes to its observers is queued on a Recorder
// and written to SQLite in the background. The trail is for operators and the
// HTTP API; nothing reads it back into a light's believed state, so a restart
// always begins from the light's initial state.
//
//	repo := history.NewSQLiteRepository(db.DB)
//	rec := history.NewRecorder(repo, history.RecorderOptions{Retention: 30 * 24 * time.Hour})
//	go rec.Run(ctx)
//	l.Subscribe(rec.Observe)
package history
