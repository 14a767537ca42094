package main

import (
	"fmt"
	"strings"

	"github.com/nikvdp/lb/internal/errs"
	"github.com/nikvdp/lb/internal/types"
)

// depSpec is one requested dependency edge, in the direction it should be
// written to the store: (fromOther ? other->subject : subject->other).
type depSpec struct {
	otherID string
	depType types.DepType
	// fromOther is true when the edge runs other -> subject, i.e. a
	// "--blocked-by" flag: "--blocked-by <T>" stores the edge as
	// (T, id, blocks) — the inverse orientation.
	fromOther bool
}

// depFlags holds the repeatable --blocks/--blocked-by/--related and
// --discovered-from flags plus the legacy comma-separated --deps form,
// shared by create and update.
type depFlags struct {
	blocks          []string
	blockedBy       []string
	related         []string
	discoveredFrom  []string
	legacy          string
}

// parse turns the flag values into a validated slice of depSpec, eagerly
// rejecting malformed --deps entries.
func (f *depFlags) parse() ([]depSpec, error) {
	var out []depSpec
	for _, id := range f.blocks {
		out = append(out, depSpec{otherID: id, depType: types.DepBlocks})
	}
	for _, id := range f.blockedBy {
		out = append(out, depSpec{otherID: id, depType: types.DepBlocks, fromOther: true})
	}
	for _, id := range f.related {
		out = append(out, depSpec{otherID: id, depType: types.DepRelated})
	}
	for _, id := range f.discoveredFrom {
		out = append(out, depSpec{otherID: id, depType: types.DepDiscoveredFrom})
	}
	if f.legacy != "" {
		for _, entry := range strings.Split(f.legacy, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := strings.SplitN(entry, ":", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("%w: malformed --deps entry %q, want type:ID", errs.ErrValidation, entry)
			}
			t := types.DepType(parts[0])
			if !t.Valid() {
				return nil, fmt.Errorf("%w: unknown dependency type %q in --deps", errs.ErrValidation, parts[0])
			}
			out = append(out, depSpec{otherID: parts[1], depType: t})
		}
	}
	return out, nil
}
