package tiercache

import "context"

// FilterUnseen returns the ids from the batch that are not already
// satisfied by the cache: neither fresh in any ready tier nor currently
// being produced. It probes presence only (tier Has), never materializing
// payloads, so a batch pipeline can skip re-fetching known items cheaply.
//
// The filter is conservative in one direction only: it must never claim an
// uncached id is cached. Tier errors and borderline-expired entries
// therefore count as unseen; the worst case is a redundant producer call,
// never a silently dropped item.
func (c *cache[V]) FilterUnseen(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	unseen := make([]string, 0, len(ids))
	visited := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := visited[id]; dup {
			continue
		}
		visited[id] = struct{}{}

		if !c.enabled {
			unseen = append(unseen, id)
			continue
		}
		key, err := c.Key(id)
		if err != nil {
			// an id that cannot form a key cannot be cached either
			unseen = append(unseen, id)
			continue
		}
		if _, busy := c.inflight.Load(key); busy {
			continue
		}
		if c.anyTierHas(ctx, key) {
			continue
		}
		unseen = append(unseen, id)
	}
	return unseen, nil
}

func (c *cache[V]) anyTierHas(ctx context.Context, key string) bool {
	for _, t := range c.tiers {
		if !t.Store.Ready(ctx) {
			continue
		}
		ok, err := t.Store.Has(ctx, key)
		if err != nil {
			c.log.Debug("presence probe failed",
				Fields{"tier": t.Store.Name(), "key": key, "err": err})
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
