package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// PgCount answers count queries directly against PostgreSQL. It leans on the
// GIN index over string_to_array(tag_string, ' ') for tag containment.
type PgCount struct {
	db *sql.DB
}

func NewPgCount(db *sql.DB) *PgCount {
	return &PgCount{db: db}
}

func (p *PgCount) Count(ctx context.Context, query string) (int64, error) {
	where, args := compileSQL(ParseQuery(query))

	q := `SELECT COUNT(*) FROM posts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}

	var count int64
	if err := p.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("pg count: %w", err)
	}
	return count, nil
}

func compileSQL(terms []Term) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, term := range terms {
		var expr string
		switch term.Kind {
		case TermRating:
			expr = fmt.Sprintf("rating = %s", arg(term.Value))
		case TermStatus:
			expr = statusExpr(term.Value)
			if expr == "" {
				continue
			}
		case TermParent:
			id, err := strconv.ParseInt(term.Value, 10, 64)
			if err != nil {
				continue
			}
			expr = fmt.Sprintf("parent_id = %s", arg(id))
		default:
			expr = fmt.Sprintf("string_to_array(tag_string, ' ') @> ARRAY[%s]", arg(term.Value))
		}
		if term.Negated {
			expr = "NOT (" + expr + ")"
		}
		where = append(where, expr)
	}
	return where, args
}

func statusExpr(status string) string {
	switch status {
	case "deleted":
		return "is_deleted = TRUE"
	case "flagged":
		return "is_flagged = TRUE"
	case "pending":
		return "is_pending = TRUE"
	case "banned":
		return "is_banned = TRUE"
	case "active":
		return "is_deleted = FALSE AND is_flagged = FALSE AND is_pending = FALSE AND is_banned = FALSE"
	case "any":
		return "TRUE"
	default:
		return ""
	}
}
