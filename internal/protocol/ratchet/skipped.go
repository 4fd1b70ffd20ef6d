package ratchet

import (
	"strconv"
	"strings"

	"agentwire/internal/domain"
	"agentwire/internal/util/memzero"
)

// skippedKey is (chain fingerprint, message number) packed into a string so
// the cache survives JSON checkpointing.
func skippedKey(chain string, n uint32) string {
	return chain + ":" + strconv.FormatUint(uint64(n), 10)
}

// cacheSkipped stores a derived message key, evicting per policy once the
// bound is reached. Evicted keys make their messages permanently
// undecryptable.
func (e *Engine) cacheSkipped(st *domain.RatchetState, chain string, n uint32, mk []byte) {
	for len(st.Skipped) >= e.cfg.CacheSize && len(st.SkippedOrder) > 0 {
		victim := st.SkippedOrder[0]
		st.SkippedOrder = st.SkippedOrder[1:]
		if old, ok := st.Skipped[victim]; ok {
			memzero.Zero(old)
			delete(st.Skipped, victim)
		}
	}
	key := skippedKey(chain, n)
	st.Skipped[key] = mk
	st.SkippedOrder = append(st.SkippedOrder, key)

	// LRU keeps an active chain's outstanding keys at the warm end, so
	// stale chains are evicted first. FIFO evicts by age alone.
	if e.cfg.Eviction == domain.EvictLRU {
		warm := make([]string, 0, len(st.SkippedOrder))
		cold := make([]string, 0, len(st.SkippedOrder))
		for _, k := range st.SkippedOrder {
			if strings.HasPrefix(k, chain) {
				warm = append(warm, k)
			} else {
				cold = append(cold, k)
			}
		}
		st.SkippedOrder = append(cold, warm...)
	}
}

// consumeSkipped looks up a cached key and evicts it: skipped keys are
// single-use, so a second delivery of the same message misses the cache and
// reads as a replay.
func (e *Engine) consumeSkipped(st *domain.RatchetState, chain string, n uint32) ([]byte, bool) {
	key := skippedKey(chain, n)
	mk, ok := st.Skipped[key]
	if !ok {
		return nil, false
	}
	delete(st.Skipped, key)
	for i, k := range st.SkippedOrder {
		if k == key {
			st.SkippedOrder = append(st.SkippedOrder[:i], st.SkippedOrder[i+1:]...)
			break
		}
	}
	return mk, true
}
