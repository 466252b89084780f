// Package exprcond provides condition leaves whose predicate is an
// expr-lang (github.com/expr-lang/expr) expression over blackboard keys.
//
// Every identifier in the expression names a blackboard key:
//
//	battery < 0.2 && mode == "patrol"
//
// This includes keys named like an expr builtin: in `count > 2`, count is
// the key, and the count builtin is unavailable to that expression. Builtins
// called as functions, like len(waypoints), are not keys.
//
// A referenced key without a value makes the condition fail. Evaluation
// errors, such as comparing a string with a number, also fail the condition
// and are kept for LastError.
package exprcond

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/joeycumines/bteng/internal/bt"
)

// ErrEmptyExpression is returned by New for a blank expression.
var ErrEmptyExpression = errors.New("exprcond: empty expression")

// Condition is a bt.Condition evaluating a compiled expression.
type Condition struct {
	*bt.Condition
	expression string
	program    *vm.Program
	keys       []string
	bb         *bt.Blackboard

	mu      sync.RWMutex
	lastErr error
}

// New compiles expression. Compile errors are returned here, never from a
// tick.
func New(name, expression string, bb *bt.Blackboard, opts ...bt.Option) (*Condition, error) {
	if bb == nil {
		return nil, errors.New("exprcond: nil blackboard")
	}
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("exprcond: parsing %q: %w", expression, err)
	}
	keys := references(tree.Node)
	options := []expr.Option{
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	}
	for _, k := range keys {
		if _, ok := builtin.Index[k]; ok {
			options = append(options, expr.DisableBuiltin(k))
		}
	}
	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("exprcond: compiling %q: %w", expression, err)
	}
	c := &Condition{
		expression: expression,
		program:    program,
		keys:       keys,
		bb:         bb,
	}
	c.Condition = bt.NewCondition(name, c.eval, opts...)
	return c, nil
}

// Expression returns the source of the condition.
func (c *Condition) Expression() string { return c.expression }

// Keys returns the blackboard keys the expression reads, sorted.
func (c *Condition) Keys() []string { return append([]string(nil), c.keys...) }

// LastError returns the error of the most recent evaluation, or nil if it
// produced a boolean.
func (c *Condition) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Condition) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Condition) eval() (bool, error) {
	env := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		v, ok := c.bb.Get(k)
		if !ok {
			err := fmt.Errorf("%w: key %q in %q", bt.ErrMissingValue, k, c.expression)
			c.setErr(err)
			return false, err
		}
		env[k] = v
	}

	out, err := expr.Run(c.program, env)
	if err != nil {
		err = fmt.Errorf("exprcond: evaluating %q: %w", c.expression, err)
		c.setErr(err)
		c.Logger().Debug("[BT] expression condition failed",
			"node", c.Name(),
			"error", err)
		return false, nil
	}
	b, ok := out.(bool)
	if !ok {
		err = fmt.Errorf("exprcond: %q returned %T, not bool", c.expression, out)
		c.setErr(err)
		return false, nil
	}
	c.setErr(nil)
	return b, nil
}

// collector gathers free identifiers. Names bound by let are excluded.
type collector struct {
	seen     map[string]struct{}
	declared map[string]struct{}
}

func (v *collector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.seen[n.Value] = struct{}{}
	case *ast.VariableDeclaratorNode:
		v.declared[n.Name] = struct{}{}
	}
}

func references(root ast.Node) []string {
	v := &collector{
		seen:     make(map[string]struct{}),
		declared: make(map[string]struct{}),
	}
	ast.Walk(&root, v)
	keys := make([]string, 0, len(v.seen))
	for k := range v.seen {
		if _, local := v.declared[k]; !local {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
