package sqlite

import (
	"fmt"
	"strings"

	"github.com/sakif/book-catalog/internal/repository"
)

// bookColumnFor maps a filter field to its column. The whitelist means no
// caller-supplied text ever reaches the SQL string itself.
var bookColumnFor = map[repository.Field]string{
	repository.FieldTitle:  "b.title",
	repository.FieldAuthor: "b.author",
	repository.FieldGenre:  "b.genre",
}

// compileBookFilter turns a validated filter into a WHERE clause (empty when
// the filter has no conditions) and its positional arguments.
func compileBookFilter(f repository.BookFilter) (string, []any, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}
	if len(f.All) == 0 {
		return "", nil, nil
	}

	var (
		parts []string
		args  []any
	)
	for _, c := range f.All {
		clause, cargs, err := compileCondition(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, cargs...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func compileCondition(c repository.Condition) (string, []any, error) {
	switch c.Op {
	case repository.OpEquals:
		return bookColumnFor[c.Field] + " = ?", []any{c.Value}, nil
	case repository.OpContains:
		// Both sides go through casefold so the match ignores case for all
		// of Unicode, not just ASCII.
		clause := foldFunc + "(" + bookColumnFor[c.Field] + `) LIKE ? ESCAPE '\'`
		return clause, []any{"%" + escapeLike(foldText(c.Value)) + "%"}, nil
	case repository.OpAnyOf:
		var (
			parts []string
			args  []any
		)
		for _, sub := range c.Any {
			clause, sargs, err := compileCondition(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, clause)
			args = append(args, sargs...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	}
	return "", nil, fmt.Errorf("sqlite: unsupported filter operator %d", c.Op)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
