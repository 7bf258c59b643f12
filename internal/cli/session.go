package cli

import (
	"context"

	"github.com/tagvault/tagvault/internal/catalog"
	"github.com/tagvault/tagvault/internal/engine"
	"github.com/tagvault/tagvault/internal/store"
)

// session is an opened library: the store handle, a point-in-time snapshot,
// and an engine bound to it. Commands evaluate against the snapshot, so
// concurrent writers never affect a running query.
type session struct {
	Store  *store.Store
	Snap   *catalog.Snapshot
	Engine *engine.Engine
}

func (s *session) Close() {
	_ = s.Store.Close()
}

// openLibrary opens the configured catalog and takes a snapshot.
func (a *App) openLibrary(ctx context.Context) (*session, error) {
	if a.Library == "" {
		return nil, errNoLibrary
	}

	st, err := store.Open(ctx, a.Library, a.Log)
	if err != nil {
		return nil, err
	}

	snap, err := st.Snapshot(ctx)
	if err != nil {
		_ = st.Close()

		return nil, err
	}

	eng := engine.New(snap, engine.Options{
		CaseSensitive: a.Cfg.CaseSensitive,
		Logger:        a.Log,
	})

	return &session{Store: st, Snap: snap, Engine: eng}, nil
}
