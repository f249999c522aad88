package matching

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/contractd/internal/jsonpaths"
)

// ErrCommandFailed is returned when a by_command expression evaluates to false.
var ErrCommandFailed = errors.New("command assertion failed")

// Commands evaluates by_command assertions as expr-lang expressions. The
// placeholder $it is bound to the value under verification, so a command
// such as "$it > 0" or "isUUID($it)" can be written directly in a contract.
//
// Expressions returning a boolean pass when true. Expressions returning
// anything else pass unless evaluation fails.
type Commands struct {
	env map[string]any

	programMu    sync.RWMutex
	programCache map[string]*vm.Program
}

// NewCommands creates an evaluator with the built-in helper functions plus
// the given ones, which take precedence.
func NewCommands(funcs map[string]any) *Commands {
	env := map[string]any{
		"isNull":     func(v any) bool { return v == nil },
		"isNotNull":  func(v any) bool { return v != nil },
		"isNumber":   isNumber,
		"isString":   func(v any) bool { _, ok := v.(string); return ok },
		"isBoolean":  func(v any) bool { _, ok := v.(bool); return ok },
		"isEmpty":    isEmpty,
		"isNotEmpty": func(v any) bool { return !isEmpty(v) },
	}
	for name, fn := range funcs {
		env[name] = fn
	}
	return &Commands{env: env, programCache: make(map[string]*vm.Program)}
}

// Func adapts c to the CommandFunc used by evaluators and WithCommands.
func (c *Commands) Func() jsonpaths.CommandFunc {
	return c.Run
}

// Run evaluates command with $it bound to actual.
func (c *Commands) Run(command string, actual any) error {
	expression := strings.ReplaceAll(command, "$it", "it")

	program, err := c.compile(expression)
	if err != nil {
		return fmt.Errorf("compile %q: %w", command, err)
	}

	env := make(map[string]any, len(c.env)+1)
	for k, v := range c.env {
		env[k] = v
	}
	env["it"] = actual

	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("eval %q: %w", command, err)
	}
	if ok, isBool := out.(bool); isBool && !ok {
		return fmt.Errorf("%w: %s returned false for %v", ErrCommandFailed, command, actual)
	}
	return nil
}

func (c *Commands) compile(expression string) (*vm.Program, error) {
	c.programMu.RLock()
	if program, ok := c.programCache[expression]; ok {
		c.programMu.RUnlock()
		return program, nil
	}
	c.programMu.RUnlock()

	env := make(map[string]any, len(c.env)+1)
	for k, v := range c.env {
		env[k] = v
	}
	env["it"] = nil

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, err
	}

	c.programMu.Lock()
	if existing, ok := c.programCache[expression]; ok {
		c.programMu.Unlock()
		return existing, nil
	}
	c.programCache[expression] = program
	c.programMu.Unlock()

	return program, nil
}

// Names lists the functions available to commands, sorted.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.env))
	for k := range c.env {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
