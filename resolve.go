package main

import (
	"path"
	"strings"
)

// ResolveStatus is the outcome of normalizing and collision-checking one directive.
type ResolveStatus int

const (
	StatusAccepted ResolveStatus = iota
	StatusRejectedMalformed
	StatusRejectedDuplicate
)

func (s ResolveStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRejectedMalformed:
		return "rejected-malformed"
	case StatusRejectedDuplicate:
		return "rejected-duplicate"
	default:
		return "unknown"
	}
}

// ResolvedName is the resolver's decision for one directive row.
type ResolvedName struct {
	Row       int
	Original  string
	Candidate string
	Status    ResolveStatus
}

// Accepted reports whether the row may be materialized under Candidate.
func (r ResolvedName) Accepted() bool {
	return r.Status == StatusAccepted
}

// ResolveOptions tunes the resolver.
type ResolveOptions struct {
	// ImageOnly rejects candidates whose extension is not a catalogued image type.
	ImageOnly bool
	// Reserved holds names of archive files that no directive refers to.
	// A candidate matching one of them counts as a duplicate claim.
	Reserved []string
	// Sources, when set, is used to find rows whose source file is missing.
	// Such rows keep their original name in the catalogue, so it counts as a claim.
	Sources SourceLookup
}

// Resolve decides the final name of every directive. The result has the same
// length and order as directives.
//
// A candidate is accepted only when it is well formed and no other row (and
// no reserved name) claims it. Contended names are rejected for every row that
// wants them; the user has to disambiguate and resubmit. Names are compared
// case-insensitively.
//
// A rejected row stays in the catalogue under its original name, so that name
// is claimed too. Rejections can therefore cascade; the decision is repeated
// until the set of rejected rows stops growing.
func Resolve(directives []RenameDirective, opts ResolveOptions) []ResolvedName {
	resolved := make([]ResolvedName, len(directives))
	valid := make([]bool, len(directives))
	base := make(map[string]int, len(directives)+len(opts.Reserved))

	for _, name := range opts.Reserved {
		base[collisionKey(name)]++
	}

	for i, d := range directives {
		candidate, ok := NormalizeTarget(d.Original, d.NewName)
		if ok && opts.ImageOnly && !HasImageExtension(candidate) {
			ok = false
		}
		resolved[i] = ResolvedName{
			Row:       d.Row,
			Original:  strings.TrimSpace(d.Original),
			Candidate: candidate,
		}
		valid[i] = ok
		if ok {
			base[collisionKey(candidate)]++
		}
		// A no-op row with a missing source already claims its own name.
		if opts.Sources != nil && !(ok && originalKey(d.Original) == collisionKey(candidate)) {
			if _, found := opts.Sources.Lookup(d.Original); !found {
				if key := originalKey(d.Original); key != "" {
					base[key]++
				}
			}
		}
	}

	rejected := make([]bool, len(directives))
	for i := range resolved {
		if !valid[i] {
			rejected[i] = true
			resolved[i].Status = StatusRejectedMalformed
		}
	}

	for {
		claims := make(map[string]int, len(base))
		for k, n := range base {
			claims[k] = n
		}
		for i := range resolved {
			if rejected[i] {
				if key := originalKey(resolved[i].Original); key != "" {
					claims[key]++
				}
			}
		}

		changed := false
		for i := range resolved {
			if rejected[i] {
				continue
			}
			if claims[collisionKey(resolved[i].Candidate)] > 1 {
				rejected[i] = true
				resolved[i].Status = StatusRejectedDuplicate
				changed = true
				continue
			}
			resolved[i].Status = StatusAccepted
		}
		if !changed {
			return resolved
		}
	}
}

// ReservedNames returns the basenames of sources that no directive refers to.
func ReservedNames(sources *SourceIndex, directives []RenameDirective) []string {
	referenced := make(map[string]bool, len(directives))
	for _, d := range directives {
		if src, ok := sources.Lookup(d.Original); ok {
			referenced[src.RelPath] = true
		}
	}

	var reserved []string
	for _, src := range sources.Files() {
		if !referenced[src.RelPath] {
			reserved = append(reserved, src.Name)
		}
	}
	return reserved
}

func collisionKey(name string) string {
	return strings.ToLower(name)
}

// originalKey is the collision key of the name a source file would carry in
// the flat output area.
func originalKey(original string) string {
	original = strings.TrimSpace(strings.ReplaceAll(original, "\\", "/"))
	if original == "" {
		return ""
	}
	return collisionKey(path.Base(original))
}
