// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// ContentEdge links a code file to a content file it loads dynamically.
type ContentEdge struct {
	// Owner is the code file the content belongs to.
	Owner string `json:"owner"`

	// Target is the content file.
	Target string `json:"target"`

	// Approximate is true when the link came from the directory fallback
	// rather than an exact sibling name match.
	Approximate bool `json:"approximate"`
}

// MatchContent associates every content file with its owning code files.
//
// Description:
//
//	Exact pass: a content file "x/card.content.ts" belongs to every
//	non-content file in "x" whose path without extension is "x/card".
//
//	Fallback pass, only for content files with no exact owner and no
//	static importer: the owners are the zero-incoming non-content files
//	below the content file's directory, or below the nearest ancestor
//	directory that has any. Every fallback association is approximate and
//	logged as a warning.
//
//	Results replace any previous MatchContent output and are kept in a
//	side map; File.Imports and ImportCount are not touched.
//
// Outputs:
//   - []ContentEdge: All associations sorted by owner then target.
func (g *Graph) MatchContent() []ContentEdge {
	g.content = make(map[string][]ContentEdge)

	var contentFiles, codeFiles []*model.File
	for _, f := range g.files {
		if g.IsContentFile(f.Path) {
			contentFiles = append(contentFiles, f)
		} else {
			codeFiles = append(codeFiles, f)
		}
	}

	var unmatched []*model.File
	for _, c := range contentFiles {
		base := g.contentBase(c.Path)
		matched := false
		for _, f := range codeFiles {
			if f.Dir() == c.Dir() && stripExt(f.Path) == base {
				g.addContentEdge(ContentEdge{Owner: f.Path, Target: c.Path})
				matched = true
			}
		}
		if !matched {
			unmatched = append(unmatched, c)
		}
	}

	var pool []*model.File
	for _, f := range codeFiles {
		if f.Meta.ImportCount == 0 {
			pool = append(pool, f)
		}
	}

	for _, c := range unmatched {
		if c.Meta.ImportCount > 0 {
			continue
		}
		owners := nearestOwners(pool, c.Dir())
		for _, owner := range owners {
			g.addContentEdge(ContentEdge{Owner: owner.Path, Target: c.Path, Approximate: true})
			g.logger.Warn("approximate content association",
				"content", c.Path,
				"owner", owner.Path)
		}
		if len(owners) == 0 {
			g.logger.Debug("content file has no owner", "content", c.Path)
		}
	}

	var all []ContentEdge
	g.stats.ContentEdges = 0
	g.stats.ApproximateContentEdges = 0
	for _, edges := range g.content {
		for _, e := range edges {
			all = append(all, e)
			g.stats.ContentEdges++
			if e.Approximate {
				g.stats.ApproximateContentEdges++
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Owner != all[j].Owner {
			return all[i].Owner < all[j].Owner
		}
		return all[i].Target < all[j].Target
	})
	return all
}

// ContentEdges returns the content associations owned by a file.
func (g *Graph) ContentEdges(owner string) []ContentEdge {
	edges := g.content[model.NormalizePath(owner)]
	out := make([]ContentEdge, len(edges))
	copy(out, edges)
	return out
}

func (g *Graph) addContentEdge(e ContentEdge) {
	g.content[e.Owner] = append(g.content[e.Owner], e)
}

// contentBase strips the content suffix: "x/card.content.ts" is "x/card".
func (g *Graph) contentBase(p string) string {
	loc := g.contentPattern.FindStringIndex(p)
	if loc == nil {
		return stripExt(p)
	}
	return p[:loc[0]]
}

// nearestOwners returns the pool files below dir, walking up to the root
// until some directory has at least one.
func nearestOwners(pool []*model.File, dir string) []*model.File {
	for {
		var found []*model.File
		for _, f := range pool {
			if under(f.Path, dir) {
				found = append(found, f)
			}
		}
		if len(found) > 0 || dir == model.RootPath {
			return found
		}
		dir = path.Dir(dir)
	}
}

func under(p, dir string) bool {
	return dir == model.RootPath || strings.HasPrefix(p, dir+"/")
}
