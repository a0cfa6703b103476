package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/quaydesk/preorder-sync-api/internal/store"
)

// snapshotResp is the bootstrap payload for a first sync: all reference
// data plus every non-tombstoned entity.
type snapshotResp struct {
	Partners  []store.Partner  `json:"partners"`
	Products  []store.Product  `json:"products"`
	Units     []store.Unit     `json:"units"`
	PreOrders []map[string]any `json:"pre_orders"`
	Flows     []map[string]any `json:"flows"`
}

// Snapshot returns a full dump of the database. Clients call it once, then
// follow the operation log via pull.
func (s *Server) Snapshot(w http.ResponseWriter, r *http.Request) {
	refs := store.NewReferenceStore(s.DB)
	preOrders := store.NewPreOrderStore(s.DB)
	flows := store.NewFlowStore(s.DB)

	var resp snapshotResp
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() (err error) {
		resp.Partners, err = refs.ListPartners(ctx)
		return
	})
	g.Go(func() (err error) {
		resp.Products, err = refs.ListProducts(ctx)
		return
	})
	g.Go(func() (err error) {
		resp.Units, err = refs.ListUnits(ctx)
		return
	})
	g.Go(func() error {
		entities, err := preOrders.ListActive(ctx)
		if err != nil {
			return err
		}
		resp.PreOrders = snapshots(entities)
		return nil
	})
	g.Go(func() error {
		entities, err := flows.ListActive(ctx)
		if err != nil {
			return err
		}
		resp.Flows = snapshots(entities)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to build snapshot")
		writeError(w, http.StatusInternalServerError, "failed to build snapshot")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func snapshots(entities []*store.Entity) []map[string]any {
	out := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Snapshot())
	}
	return out
}
