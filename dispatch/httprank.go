package dispatch

import "github.com/hyperware-ai/hyperprocess-core/descriptor"

// httpFilterMatches reports whether a handler's HTTP filter accepts the
// incoming (method, path), treating an absent filter axis as "any".
func httpFilterMatches(f descriptor.HTTPFilter, method, path string) bool {
	if f.HasMethod && string(f.Method) != method {
		return false
	}
	if f.HasPath && f.Path != path {
		return false
	}
	return true
}

// httpRank scores a paramless HTTP descriptor's filter against the
// incoming (method, path) per §4.2 Phase B, rank 1 (best) to 4 (worst).
// Returns ok=false if the filter does not accept the request at all.
//
// The rank order realized here is (1) exact (method, path) match,
// (2) a matching method filter with no path filter, (3) a matching path
// filter with no method filter, (4) no filters at all. This reorders
// ranks (ii) and (iii) relative to spec.md's prose, which is internally
// inconsistent with its own worked example (§8 property 7); see
// DESIGN.md for the resolution.
func httpRank(f descriptor.HTTPFilter, method, path string) (rank int, ok bool) {
	if !httpFilterMatches(f, method, path) {
		return 0, false
	}
	switch {
	case f.HasMethod && f.HasPath:
		return 1, true
	case f.HasMethod && !f.HasPath:
		return 2, true
	case !f.HasMethod && f.HasPath:
		return 3, true
	default:
		return 4, true
	}
}

// SelectParamlessHTTP picks the winning parameter-less HTTP handler for
// an incoming (method, path) among candidates, per §4.2 Phase B. It
// returns the best-ranked match and true, or nil and false if nothing
// matches. Rank-uniqueness (at most one candidate per rank) is a
// build-time invariant enforced by builder.Validate; SelectParamlessHTTP
// trusts that and returns the first candidate seen at the winning rank.
func SelectParamlessHTTP(candidates []*descriptor.Descriptor, method, path string) (*descriptor.Descriptor, bool) {
	var best *descriptor.Descriptor
	bestRank := 5
	for _, d := range candidates {
		rank, ok := httpRank(d.HTTP, method, path)
		if !ok {
			continue
		}
		if rank < bestRank {
			bestRank = rank
			best = d
		}
	}
	return best, best != nil
}

// anyPathMatches reports whether any paramless candidate declares a path
// filter equal to path or declares no path filter at all, used to
// distinguish 404 from 405 when no candidate ultimately wins.
func anyPathMatches(candidates []*descriptor.Descriptor, path string) bool {
	for _, d := range candidates {
		if d.HTTP.HasPath && d.HTTP.Path == path {
			return true
		}
		if !d.HTTP.HasPath {
			// a path-less handler always "covers" the path; if it also
			// rejected on method, that's the 405 case.
			return true
		}
	}
	return false
}
