package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashgrove/medialib/internal/dbengine"
)

// minSearchLength is the shortest query FTS5 is allowed to run against;
// shorter queries match nothing and return an empty result.
const minSearchLength = 3

// SearchResult is one FTS match, tagged with the kind of entity it
// resolves to so callers can dispatch to the right repository.
type SearchResult struct {
	Kind string // "media", "album", "artist", "genre", "playlist"
	ID   int64
	Text string
}

// SearchRepo runs full-text queries across the FTS5 tables internal/schema
// maintains in sync with their base tables.
type SearchRepo struct {
	engine *dbengine.Engine
}

var searchTargets = []struct {
	kind, ftsTable, column string
}{
	{"media", "media_fts", "title"},
	{"album", "albums_fts", "title"},
	{"artist", "artists_fts", "name"},
	{"genre", "genres_fts", "name"},
	{"playlist", "playlists_fts", "name"},
}

// Search runs query against every FTS table (or, if kind is non-empty,
// just the table for that kind), returning up to limit matches. A query
// shorter than minSearchLength matches nothing rather than erroring, since
// it is a normal, expected shape for a caller to probe with (e.g. as a user
// types), not a malformed request.
func (r *SearchRepo) Search(ctx context.Context, query, kind string, limit int) ([]SearchResult, error) {
	if len(query) < minSearchLength {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	match := prefixMatchQuery(query)

	var out []SearchResult
	for _, target := range searchTargets {
		if kind != "" && kind != target.kind {
			continue
		}
		rows, err := r.engine.Query(ctx,
			fmt.Sprintf(`SELECT rowid, %s FROM %s WHERE %s MATCH ? ORDER BY rank LIMIT ?`, target.column, target.ftsTable, target.ftsTable),
			match, limit)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int64
			var text string
			if err := rows.Scan(&id, &text); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, SearchResult{Kind: target.kind, ID: id, Text: text})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// prefixMatchQuery turns a user-typed query into an FTS5 MATCH expression
// that prefix-matches each whitespace-separated token, so
// "search_media('track 1')" matches "track 10" as well as "track 1". Each token is quoted as
// an FTS5 string literal before the trailing '*' so punctuation and bare
// FTS operators (AND, OR, NOT, NEAR) in the input are treated as literal
// text rather than query syntax.
func prefixMatchQuery(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"*`
	}
	return strings.Join(quoted, " ")
}
