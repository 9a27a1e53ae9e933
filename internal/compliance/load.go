package compliance

import (
	"context"

	"grc-isms/internal/store"

	"golang.org/x/sync/errgroup"
)

// Load reads every collection the dashboard needs. The reads are independent
// and run concurrently; the first failure cancels the rest and is returned
// alone, so callers never see a partial snapshot.
func Load(ctx context.Context, st store.Store) (Snapshot, error) {
	var s Snapshot
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		s.Controls, err = st.Controls().All(gCtx)
		return err
	})
	g.Go(func() (err error) {
		s.Risks, err = st.Risks().All(gCtx)
		return err
	})
	g.Go(func() (err error) {
		s.Audits, err = st.Audits().All(gCtx)
		return err
	})
	g.Go(func() (err error) {
		s.Policies, err = st.Policies().All(gCtx)
		return err
	})
	g.Go(func() (err error) {
		s.Users, err = st.Users().All(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
