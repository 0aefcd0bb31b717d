package main

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
)

// parseWhere turns "col=value" and "col~~pattern" expressions into quals.
// The operator that appears first in the expression wins, so values may
// contain either token.
func parseWhere(exprs []string) ([]core.Qual, error) {
	quals := make([]core.Qual, 0, len(exprs))
	for _, expr := range exprs {
		eq := strings.Index(expr, string(core.OperatorEqual))
		like := strings.Index(expr, string(core.OperatorLike))

		var q core.Qual
		switch {
		case like >= 0 && (eq < 0 || like < eq):
			q = core.Qual{Field: expr[:like], Operator: core.OperatorLike, Value: expr[like+len(core.OperatorLike):]}
		case eq >= 0:
			q = core.Qual{Field: expr[:eq], Operator: core.OperatorEqual, Value: expr[eq+len(core.OperatorEqual):]}
		default:
			return nil, fmt.Errorf("invalid --where %q: expected col=value or col~~pattern", expr)
		}

		q.Field = strings.TrimSpace(q.Field)
		if q.Field == "" {
			return nil, fmt.Errorf("invalid --where %q: missing column", expr)
		}
		quals = append(quals, q)
	}
	return quals, nil
}

// parseSet turns "col=value" assignments into a row
func parseSet(assignments []string) (core.Row, error) {
	row := make(core.Row, len(assignments))
	for _, a := range assignments {
		col, value, ok := strings.Cut(a, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --set %q: expected col=value", a)
		}
		row[col] = value
	}
	return row, nil
}

// parseColumns splits a comma separated column list; empty means all of defs.
func parseColumns(list string, defs []core.ColumnDefinition) []string {
	if strings.TrimSpace(list) == "" {
		return core.TableDefinition{Columns: defs}.ColumnNames()
	}
	var cols []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
