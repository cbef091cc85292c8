package postgres

import (
	"strconv"
	"strings"
)

// fragment is one SQL snippet with its positional arguments. Fragments use ?
// placeholders; SQL() renumbers them to $n across the whole statement.
type fragment struct {
	sql  string
	args []any
}

// assetQuery is a mutable query plan: CTEs, select expressions, a
// deduplicated join set, predicate fragments, grouping, ordering and paging.
// It builds up incrementally and is finalized exactly once by SQL(). The
// plan is inspectable without a database, which is what the builder tests
// exercise.
type assetQuery struct {
	ctes       []fragment
	recursive  bool
	distinct   string
	selects    []string
	selectArgs []any
	extras     []string
	from       string
	joins      []fragment
	joinKeys   map[string]int
	wheres     []fragment
	groups     []string
	orders     []fragment
	limit      int
	offset     int
}

// newQuery starts a plan over an arbitrary relation with explicit select
// expressions.
func newQuery(from string, selects ...string) *assetQuery {
	return &assetQuery{
		selects:  selects,
		from:     from,
		joinKeys: make(map[string]int),
		limit:    -1,
		offset:   -1,
	}
}

// newAssetQuery starts a plan selecting the full asset column set.
func newAssetQuery() *assetQuery {
	return newQuery("assets", assetColumns...)
}

// withCTE prepends a named common table expression.
func (q *assetQuery) withCTE(name, body string, args ...any) *assetQuery {
	q.ctes = append(q.ctes, fragment{sql: name + " AS (" + body + ")", args: args})
	return q
}

// withRecursiveCTE marks the CTE list recursive and prepends the expression.
func (q *assetQuery) withRecursiveCTE(name, body string, args ...any) *assetQuery {
	q.recursive = true
	q.ctes = append(q.ctes, fragment{sql: name + " AS (" + body + ")", args: args})
	return q
}

// distinctOn makes the select DISTINCT ON the given expression.
func (q *assetQuery) distinctOn(expr string) *assetQuery {
	q.distinct = expr
	return q
}

// selectExpr appends an extra select expression whose result is scanned
// under the given key (see scanAssets).
func (q *assetQuery) selectExpr(expr, key string, args ...any) *assetQuery {
	q.selects = append(q.selects, expr)
	q.selectArgs = append(q.selectArgs, args...)
	q.extras = append(q.extras, key)
	return q
}

// join adds a join clause unless one with the same key is already present.
// Filters and relation expansions that need the same relation share a key,
// so the relation is joined exactly once.
func (q *assetQuery) join(key, clause string, args ...any) *assetQuery {
	if _, ok := q.joinKeys[key]; ok {
		return q
	}
	q.joinKeys[key] = len(q.joins)
	q.joins = append(q.joins, fragment{sql: clause, args: args})
	return q
}

// joinRequired adds a join that is a hard filter requirement: if a join with
// the same key is already planned (an optional relation expansion), its
// clause is replaced. Predicates over a relation's columns must not see rows
// fabricated by an outer join.
func (q *assetQuery) joinRequired(key, clause string, args ...any) *assetQuery {
	if i, ok := q.joinKeys[key]; ok {
		q.joins[i] = fragment{sql: clause, args: args}
		return q
	}
	q.joinKeys[key] = len(q.joins)
	q.joins = append(q.joins, fragment{sql: clause, args: args})
	return q
}

// hasJoin reports whether a join with the given key is planned.
func (q *assetQuery) hasJoin(key string) bool {
	_, ok := q.joinKeys[key]
	return ok
}

// where appends a predicate; all predicates are ANDed together.
func (q *assetQuery) where(clause string, args ...any) *assetQuery {
	q.wheres = append(q.wheres, fragment{sql: clause, args: args})
	return q
}

// groupBy appends a grouping expression.
func (q *assetQuery) groupBy(expr string) *assetQuery {
	q.groups = append(q.groups, expr)
	return q
}

// orderBy appends an ordering expression. Expressions may carry arguments
// (vector distance ordering does).
func (q *assetQuery) orderBy(expr string, args ...any) *assetQuery {
	q.orders = append(q.orders, fragment{sql: expr, args: args})
	return q
}

// page sets LIMIT and OFFSET. Negative values leave the clause out.
func (q *assetQuery) page(limit, offset int) *assetQuery {
	q.limit = limit
	q.offset = offset
	return q
}

// SQL assembles the final statement and its argument list. Arguments follow
// textual order: CTEs, selects, joins, predicates, ordering, paging.
func (q *assetQuery) SQL() (string, []any) {
	var sb strings.Builder
	var args []any

	if len(q.ctes) > 0 {
		if q.recursive {
			sb.WriteString("WITH RECURSIVE ")
		} else {
			sb.WriteString("WITH ")
		}
		for i, c := range q.ctes {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.sql)
			args = append(args, c.args...)
		}
		sb.WriteString(" ")
	}

	sb.WriteString("SELECT ")
	if q.distinct != "" {
		sb.WriteString("DISTINCT ON (" + q.distinct + ") ")
	}
	sb.WriteString(strings.Join(q.selects, ", "))
	args = append(args, q.selectArgs...)
	sb.WriteString(" FROM " + q.from)

	for _, j := range q.joins {
		sb.WriteString(" " + j.sql)
		args = append(args, j.args...)
	}

	if len(q.wheres) > 0 {
		sb.WriteString(" WHERE ")
		for i, w := range q.wheres {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(w.sql)
			args = append(args, w.args...)
		}
	}

	if len(q.groups) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(q.groups, ", "))
	}

	if len(q.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.orders {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.sql)
			args = append(args, o.args...)
		}
	}

	if q.limit >= 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.limit))
	}
	if q.offset >= 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(q.offset))
	}

	return rebind(sb.String()), args
}

// rebind rewrites ? placeholders to PostgreSQL's $1..$n form. The plan never
// embeds ? inside literals, so a plain scan is enough.
func rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
