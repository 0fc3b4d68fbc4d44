package dataflow

import (
	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
	"github.com/kolkov/ompdart/internal/region"
)

// emitRegionScopeClause chooses the region-scope map clause for v from
// the final (mapTo, mapFrom, mapAlloc) booleans, per spec §4.4's table.
func emitRegionScopeClause(v event.VarID, st *variable, meta accesslog.VarMeta, rb *region.Builder) {
	entry := accesslog.AccessEntry{Var: v}
	switch {
	case st.mapTo && st.mapFrom:
		entry.Mode = accesslog.READWRITE
		rb.AddMapToFrom(entry)
	case st.mapTo:
		entry.Mode = accesslog.WRITE
		rb.AddMapTo(entry)
	case st.mapFrom:
		entry.Mode = accesslog.READ
		rb.AddMapFrom(entry)
	default:
		if st.mapAlloc && !meta.Arithmetic {
			entry.Mode = accesslog.UNKNOWN
			rb.AddMapAlloc(entry)
		}
	}
}
