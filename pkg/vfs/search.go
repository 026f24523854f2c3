package vfs

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SearchMode selects how multiple terms combine.
type SearchMode int

const (
	// MatchAny accepts a file containing any of the terms.
	MatchAny SearchMode = iota
	// MatchAll requires every term to appear in the file.
	MatchAll
)

// SearchOrder selects the hit ordering.
type SearchOrder int

const (
	// OrderByName sorts hits lexically by filename.
	OrderByName SearchOrder = iota
	// OrderByModified sorts hits newest first.
	OrderByModified
)

const snippetMaxLen = 200

// TextHit is one matching file with the first matching line.
type TextHit struct {
	UUID         uuid.UUID
	Path         string
	Filename     string
	LineNo       int
	Snippet      string
	ContentType  string
	SizeBytes    int64
	ModifiedTime int64
}

// BinaryHit is one binary file whose name matched.
type BinaryHit struct {
	Path         string
	Filename     string
	ContentType  string
	SizeBytes    int64
	ModifiedTime int64
}

// SearchText finds non-binary files under path whose content matches the
// terms. The database filters candidate rows; line numbers and snippets
// are extracted here from the returned content.
func (fs *FS) SearchText(ctx context.Context, terms []string, path, rootKey string, mode SearchMode, caseSensitive bool, order SearchOrder) ([]TextHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	path = Normalize(path)

	rows, err := fs.q(ctx).Query(ctx,
		`SELECT * FROM vfs_search_text($1, $2, $3, $4, $5)`,
		terms, path, rootKey, mode == MatchAll, caseSensitive)
	if err != nil {
		return nil, mapPgError(err, "SearchText", path)
	}

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, mapPgError(err, "SearchText", path)
	}

	hits := make([]TextHit, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		lineNo, snippet := firstMatchingLine(n.Text(), terms, caseSensitive)
		hits = append(hits, TextHit{
			UUID:         n.UUID,
			Path:         n.Path(),
			Filename:     n.Filename,
			LineNo:       lineNo,
			Snippet:      snippet,
			ContentType:  n.ContentType,
			SizeBytes:    n.SizeBytes,
			ModifiedTime: n.ModifiedTime,
		})
	}

	sortTextHits(hits, order)
	return hits, nil
}

// SearchBinaries finds binary files under path whose filename contains
// query, case-insensitively.
func (fs *FS) SearchBinaries(ctx context.Context, query, path, rootKey string) ([]BinaryHit, error) {
	if query == "" {
		return nil, nil
	}
	path = Normalize(path)

	rows, err := fs.q(ctx).Query(ctx,
		`SELECT * FROM vfs_search_binaries($1, $2, $3)`,
		query, path, rootKey)
	if err != nil {
		return nil, mapPgError(err, "SearchBinaries", path)
	}

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, mapPgError(err, "SearchBinaries", path)
	}

	hits := make([]BinaryHit, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		hits = append(hits, BinaryHit{
			Path:         n.Path(),
			Filename:     n.Filename,
			ContentType:  n.ContentType,
			SizeBytes:    n.SizeBytes,
			ModifiedTime: n.ModifiedTime,
		})
	}
	return hits, nil
}

// firstMatchingLine returns the 1-based line number and trimmed snippet of
// the first line containing any of the terms. Files matched in ALL mode
// still snippet the first line with any term on it.
func firstMatchingLine(content string, terms []string, caseSensitive bool) (int, string) {
	needles := terms
	if !caseSensitive {
		needles = make([]string, len(terms))
		for i, t := range terms {
			needles[i] = strings.ToLower(t)
		}
	}

	for i, line := range strings.Split(content, "\n") {
		haystack := line
		if !caseSensitive {
			haystack = strings.ToLower(line)
		}
		for _, t := range needles {
			if strings.Contains(haystack, t) {
				return i + 1, trimSnippet(line)
			}
		}
	}
	return 0, ""
}

func trimSnippet(line string) string {
	line = strings.TrimSpace(line)
	if len(line) <= snippetMaxLen {
		return line
	}
	// Cut on a rune boundary.
	cut := snippetMaxLen
	for cut > 0 && !isRuneStart(line[cut]) {
		cut--
	}
	return line[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func sortTextHits(hits []TextHit, order SearchOrder) {
	switch order {
	case OrderByModified:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].ModifiedTime > hits[j].ModifiedTime
		})
	default:
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].Filename != hits[j].Filename {
				return hits[i].Filename < hits[j].Filename
			}
			return hits[i].Path < hits[j].Path
		})
	}
}

// ParseQuery splits a search query into terms. Double-quoted substrings
// stay together as one term; quotes themselves are stripped.
func ParseQuery(query string) []string {
	var (
		terms    []string
		current  strings.Builder
		inQuotes bool
	)

	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}

	for _, r := range query {
		switch {
		case r == '"':
			if inQuotes {
				flush()
			}
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return terms
}
