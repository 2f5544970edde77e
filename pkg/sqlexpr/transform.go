package sqlexpr

// Transform rebuilds the tree bottom-up, handing every node to fn after its children have
// been rewritten. The input tree is never modified.
func Transform(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}

	children := e.children()
	if len(children) > 0 {
		rewritten := make([]Expr, len(children))
		for i, c := range children {
			rewritten[i] = Transform(c, fn)
		}
		e = e.withChildren(rewritten)
	}

	return fn(e)
}

// Walk visits nodes depth-first, pre-order. Returning false skips the node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.children() {
		Walk(c, fn)
	}
}

// Qualify points every column reference in e at the given table alias.
func Qualify(e Expr, alias string) Expr {
	return Transform(e, func(node Expr) Expr {
		if c, ok := node.(Column); ok {
			c.Table = alias
			return c
		}
		return node
	})
}

// Columns lists the distinct columns referenced by e, in order of appearance.
func Columns(e Expr) []Column {
	var cols []Column
	seen := map[string]bool{}
	Walk(e, func(node Expr) bool {
		c, ok := node.(Column)
		if !ok {
			return true
		}
		k := c.Table + "." + c.Key()
		if !seen[k] {
			seen[k] = true
			cols = append(cols, c)
		}
		return false
	})

	return cols
}
