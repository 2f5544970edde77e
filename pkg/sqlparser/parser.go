// Package sqlparser turns the column expressions written in model configuration, such as
// `name`, `(id, ds)` or `lower(email)`, into sqlexpr trees.
package sqlparser

import (
	"fmt"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	"github.com/bruin-data/timerange-merge/pkg/dialect"
	"github.com/bruin-data/timerange-merge/pkg/sqlexpr"
	"github.com/pkg/errors"
)

// ParseExpressions parses a single expression or a parenthesized list of expressions.
// A list is flattened, so `(id, ds)` yields two expressions.
func ParseExpressions(raw string) ([]sqlexpr.Expr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	rewritten, quoted, err := normalizeQuotes(raw)
	if err != nil {
		return nil, err
	}
	rewritten, err = rewriteCasts(rewritten)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse expression '%s'", raw)
	}
	if inner, ok := unwrapList(rewritten); ok {
		rewritten = inner
	}
	if strings.TrimSpace(rewritten) == "" {
		return nil, nil
	}

	stmt, err := sqlparser.Parse("SELECT " + rewritten + " FROM t")
	if err != nil {
		// names like `key` or `order` are reserved in the parser's grammar but are plain
		// columns on the warehouses
		retried, retryErr := sqlparser.Parse("SELECT " + quoteBareIdentifiers(rewritten) + " FROM t")
		if retryErr != nil {
			return nil, errors.Wrapf(err, "failed to parse expression '%s'", raw)
		}
		stmt = retried
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("failed to parse expression '%s'", raw)
	}

	c := converter{quoted: quoted}
	exprs := make([]sqlexpr.Expr, 0, len(sel.SelectExprs))
	for _, se := range sel.SelectExprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, fmt.Errorf("unsupported expression '%s'", sqlparser.String(se))
		}
		if !aliased.As.IsEmpty() {
			return nil, fmt.Errorf("aliases are not allowed in '%s'", raw)
		}

		e, err := c.convert(aliased.Expr)
		if err != nil {
			return nil, err
		}
		switch v := e.(type) {
		case sqlexpr.Tuple:
			exprs = append(exprs, v.Exprs...)
		case sqlexpr.Paren:
			exprs = append(exprs, v.Expr)
		default:
			exprs = append(exprs, e)
		}
	}

	return exprs, nil
}

// ParseColumn parses a raw value that must be a single column reference.
func ParseColumn(raw string) (sqlexpr.Column, error) {
	exprs, err := ParseExpressions(raw)
	if err != nil {
		return sqlexpr.Column{}, err
	}
	if len(exprs) != 1 {
		return sqlexpr.Column{}, fmt.Errorf("expected a single column, got '%s'", raw)
	}

	col, ok := exprs[0].(sqlexpr.Column)
	if !ok {
		return sqlexpr.Column{}, fmt.Errorf("expected a column reference, got '%s'", raw)
	}
	return col, nil
}

// ParseTimeColumn accepts `ds` or `(ds, '%Y-%m-%d')` and returns the column with its format.
func ParseTimeColumn(raw string) (sqlexpr.Column, string, error) {
	exprs, err := ParseExpressions(raw)
	if err != nil {
		return sqlexpr.Column{}, "", err
	}

	switch len(exprs) {
	case 1, 2:
	default:
		return sqlexpr.Column{}, "", fmt.Errorf("expected a column and an optional format, got '%s'", raw)
	}

	col, ok := exprs[0].(sqlexpr.Column)
	if !ok {
		return sqlexpr.Column{}, "", fmt.Errorf("expected a column reference, got '%s'", raw)
	}
	if len(exprs) == 1 {
		return col, "", nil
	}

	format, ok := exprs[1].(sqlexpr.Literal)
	if !ok || format.Kind != sqlexpr.StringLiteral {
		return sqlexpr.Column{}, "", fmt.Errorf("time column format must be a string, got '%s'", raw)
	}
	return col, format.Value, nil
}

type converter struct {
	quoted map[string]bool
}

func (c converter) convert(node sqlparser.Expr) (sqlexpr.Expr, error) {
	switch n := node.(type) {
	case *sqlparser.ColName:
		name := n.Name.String()
		return sqlexpr.Column{
			Name:   name,
			Table:  n.Qualifier.Name.String(),
			Quoted: c.quoted[name],
		}, nil
	case *sqlparser.SQLVal:
		switch n.Type {
		case sqlparser.StrVal:
			return sqlexpr.String(string(n.Val)), nil
		case sqlparser.IntVal, sqlparser.FloatVal:
			return sqlexpr.Number(string(n.Val)), nil
		default:
			return nil, fmt.Errorf("unsupported literal '%s'", sqlparser.String(n))
		}
	case *sqlparser.NullVal:
		return sqlexpr.Literal{Kind: sqlexpr.NullLiteral}, nil
	case sqlparser.BoolVal:
		return sqlexpr.Literal{Kind: sqlexpr.BoolLiteral, Value: sqlparser.String(n)}, nil
	case *sqlparser.ParenExpr:
		inner, err := c.convert(n.Expr)
		if err != nil {
			return nil, err
		}
		return sqlexpr.Paren{Expr: inner}, nil
	case sqlparser.ValTuple:
		exprs, err := c.convertAll(n)
		if err != nil {
			return nil, err
		}
		return sqlexpr.Tuple{Exprs: exprs}, nil
	case *sqlparser.FuncExpr:
		args := make([]sqlparser.Expr, 0, len(n.Exprs))
		for _, se := range n.Exprs {
			aliased, ok := se.(*sqlparser.AliasedExpr)
			if !ok {
				return nil, fmt.Errorf("unsupported function argument in '%s'", sqlparser.String(n))
			}
			args = append(args, aliased.Expr)
		}
		converted, err := c.convertAll(args)
		if err != nil {
			return nil, err
		}
		return sqlexpr.Func{Name: n.Name.String(), Args: converted}, nil
	case *sqlparser.ConvertExpr:
		inner, err := c.convert(n.Expr)
		if err != nil {
			return nil, err
		}
		typ := sqlexpr.ParseDataType(sqlparser.String(n.Type), dialect.Dialect{})
		return sqlexpr.Cast{Expr: inner, Type: typ}, nil
	case *sqlparser.ComparisonExpr:
		return c.binary(n.Operator, n.Left, n.Right)
	case *sqlparser.BinaryExpr:
		return c.binary(n.Operator, n.Left, n.Right)
	case *sqlparser.RangeCond:
		if n.Operator != sqlparser.BetweenStr {
			return nil, fmt.Errorf("unsupported range condition '%s'", sqlparser.String(n))
		}
		parts, err := c.convertAll([]sqlparser.Expr{n.Left, n.From, n.To})
		if err != nil {
			return nil, err
		}
		return sqlexpr.Between{Expr: parts[0], Low: parts[1], High: parts[2]}, nil
	case *sqlparser.AndExpr:
		parts, err := c.convertAll([]sqlparser.Expr{n.Left, n.Right})
		if err != nil {
			return nil, err
		}
		return sqlexpr.And{Conds: parts}, nil
	case *sqlparser.OrExpr:
		parts, err := c.convertAll([]sqlparser.Expr{n.Left, n.Right})
		if err != nil {
			return nil, err
		}
		return sqlexpr.Or{Conds: parts}, nil
	case *sqlparser.NotExpr:
		inner, err := c.convert(n.Expr)
		if err != nil {
			return nil, err
		}
		return sqlexpr.Not{Expr: inner}, nil
	default:
		return nil, fmt.Errorf("unsupported expression '%s'", sqlparser.String(node))
	}
}

func (c converter) binary(op string, left, right sqlparser.Expr) (sqlexpr.Expr, error) {
	parts, err := c.convertAll([]sqlparser.Expr{left, right})
	if err != nil {
		return nil, err
	}
	return sqlexpr.Binary{Op: op, Left: parts[0], Right: parts[1]}, nil
}

func (c converter) convertAll(nodes []sqlparser.Expr) ([]sqlexpr.Expr, error) {
	out := make([]sqlexpr.Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := c.convert(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// normalizeQuotes rewrites double-quoted identifiers into backticks, the only identifier
// quoting the parser understands, and remembers which names were quoted.
func normalizeQuotes(raw string) (string, map[string]bool, error) {
	quoted := map[string]bool{}
	var b strings.Builder

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch ch {
		case '\'':
			end := strings.IndexByte(raw[i+1:], '\'')
			if end < 0 {
				return "", nil, fmt.Errorf("unterminated string in '%s'", raw)
			}
			b.WriteString(raw[i : i+end+2])
			i += end + 1
		case '"', '`':
			end := strings.IndexByte(raw[i+1:], ch)
			if end < 0 {
				return "", nil, fmt.Errorf("unterminated identifier in '%s'", raw)
			}
			name := raw[i+1 : i+1+end]
			quoted[name] = true
			b.WriteString("`" + name + "`")
			i += end + 1
		default:
			b.WriteByte(ch)
		}
	}

	return b.String(), quoted, nil
}

// rewriteCasts turns `x::type` into `CAST(x AS type)`. The type is backtick-quoted since
// the grammar only accepts a handful of MySQL type names in a cast.
func rewriteCasts(s string) (string, error) {
	for {
		i := indexOutsideQuotes(s, "::")
		if i < 0 {
			return s, nil
		}

		start := operandStart(s, i)
		if start == i {
			return "", fmt.Errorf("missing operand before '::'")
		}

		typeStart := i + 2
		for typeStart < len(s) && s[typeStart] == ' ' {
			typeStart++
		}
		typeEnd := typeStart
		for typeEnd < len(s) && isIdentChar(s[typeEnd]) {
			typeEnd++
		}
		if typeEnd == typeStart {
			return "", fmt.Errorf("missing type after '::'")
		}
		next := typeEnd
		for next < len(s) && s[next] == ' ' {
			next++
		}
		if next < len(s) && s[next] == '(' {
			closing := strings.IndexByte(s[next:], ')')
			if closing < 0 {
				return "", fmt.Errorf("unbalanced parentheses after '::'")
			}
			typeEnd = next + closing + 1
		}

		typ := s[typeStart:typeEnd]
		s = s[:start] + "CAST(" + strings.TrimSpace(s[start:i]) + " AS `" + typ + "`)" + s[typeEnd:]
	}
}

// operandStart walks back from the `::` at end to the start of the operand it applies to:
// a possibly qualified name, a literal, or a parenthesized expression or function call.
func operandStart(s string, end int) int {
	j := end - 1
	for j >= 0 && s[j] == ' ' {
		j--
	}

	for j >= 0 {
		switch {
		case s[j] == ')':
			j = matchingOpen(s, j) - 1
			for j >= 0 && isIdentChar(s[j]) {
				j--
			}
		case s[j] == '`' || s[j] == '\'':
			j = strings.LastIndexByte(s[:j], s[j]) - 1
		case isIdentChar(s[j]):
			for j >= 0 && isIdentChar(s[j]) {
				j--
			}
		default:
			return j + 1
		}

		if j < 0 || s[j] != '.' {
			break
		}
		j--
	}
	return max(j+1, 0)
}

func matchingOpen(s string, closing int) int {
	depth := 0
	for k := closing; k >= 0; k-- {
		switch s[k] {
		case '`', '\'':
			k = strings.LastIndexByte(s[:k], s[k])
			if k < 0 {
				return 0
			}
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return 0
}

func indexOutsideQuotes(s, needle string) int {
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inQuote != 0 {
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		if ch == '\'' || ch == '`' {
			inQuote = ch
			continue
		}
		if strings.HasPrefix(s[i:], needle) {
			return i
		}
	}
	return -1
}

var expressionKeywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "XOR": true, "IS": true, "IN": true, "LIKE": true,
	"BETWEEN": true, "AS": true, "NULL": true, "TRUE": true, "FALSE": true, "CASE": true,
	"WHEN": true, "THEN": true, "ELSE": true, "END": true, "DIV": true, "MOD": true,
	"DISTINCT": true, "INTERVAL": true, "REGEXP": true,
}

// quoteBareIdentifiers backtick-quotes every unquoted word that is neither a function
// name nor an operator keyword.
func quoteBareIdentifiers(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch == '\'' || ch == '`':
			end := strings.IndexByte(s[i+1:], ch)
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(s[i : i+end+2])
			i += end + 2
		case ch >= '0' && ch <= '9':
			j := i
			for j < len(s) && (isIdentChar(s[j]) || s[j] == '.') {
				j++
			}
			b.WriteString(s[i:j])
			i = j
		case isIdentChar(ch):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			word := s[i:j]
			k := j
			for k < len(s) && s[k] == ' ' {
				k++
			}
			if (k < len(s) && s[k] == '(') || expressionKeywords[strings.ToUpper(word)] {
				b.WriteString(word)
			} else {
				b.WriteString("`" + word + "`")
			}
			i = j
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// unwrapList strips the outer parentheses of `(a, b)`. `(a)` and `(a) + (b)` are left alone.
func unwrapList(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
		return "", false
	}
	if strings.TrimSpace(raw[1:len(raw)-1]) == "" {
		return "", true
	}

	depth := 0
	topLevelComma := false
	inString := byte(0)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString != 0 {
			if ch == inString {
				inString = 0
			}
			continue
		}
		switch ch {
		case '\'', '`':
			inString = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(raw)-1 {
				return "", false
			}
		case ',':
			if depth == 1 {
				topLevelComma = true
			}
		}
	}

	if !topLevelComma {
		return "", false
	}
	return raw[1 : len(raw)-1], true
}
