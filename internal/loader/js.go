package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/schema"
)

// JS returns the interpreter for JavaScript scripts. Each script runs in its
// own goja runtime with these globals:
//
//	register(typeName)          expose a type; returns its accessor
//	defineType(name, def)       declare fields, defaults, rules and hooks
//	label_id(label)             the durable id a label derives
//	console.log(...)            log at info level
//
// plus one global per registered accessor. An accessor has upsert(label,
// attrs), find(label), has(label) and labels(), and each defined label is a
// property: plans.basic.title.
func JS() Interpreter {
	return InterpreterFunc(execJS)
}

type jsScript struct {
	ctx context.Context
	env *Env
	vm  *goja.Runtime

	// err is the last Go error thrown into the script and thrown is its
	// JavaScript value.
	err    error
	thrown *goja.Object
}

func execJS(ctx context.Context, env *Env, src []byte) error {
	prog, err := goja.Compile(env.Path(), string(src), false)
	if err != nil {
		return fmt.Errorf("compile script: %w", err)
	}

	s := &jsScript{ctx: ctx, env: env, vm: goja.New()}
	if err := s.install(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := s.vm.RunProgram(prog); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exc *goja.Exception
		if errors.As(err, &exc) && s.thrown != nil && exc.Value() == goja.Value(s.thrown) {
			return s.err
		}
		return err
	}
	return nil
}

func (s *jsScript) install() error {
	globals := map[string]any{
		"register":   s.register,
		"defineType": s.defineType,
		"label_id": func(label string) string {
			return ir.LabelID(label)
		},
	}
	console := s.vm.NewObject()
	if err := console.Set("log", s.log); err != nil {
		return err
	}
	globals["console"] = console

	for _, a := range s.env.Namespace().Accessors() {
		globals[a.Name()] = s.accessorObject(a)
	}
	for name, v := range globals {
		if err := s.vm.Set(name, v); err != nil {
			return fmt.Errorf("set global %s: %w", name, err)
		}
	}
	return nil
}

// throw raises err in the script. If the script does not catch it, the load
// fails with err itself.
func (s *jsScript) throw(err error) {
	s.err = err
	s.thrown = s.vm.NewGoError(err)
	panic(s.thrown)
}

// line returns the script line of the innermost frame in this script.
func (s *jsScript) line() int {
	for _, frame := range s.vm.CaptureCallStack(16, nil) {
		pos := frame.Position()
		if pos.Filename == s.env.Path() && pos.Line > 0 {
			return pos.Line
		}
	}
	return 0
}

func (s *jsScript) register(call goja.FunctionCall) goja.Value {
	name := call.Argument(0)
	if !present(name) || name.String() == "" {
		s.throw(errors.New("register: type name is required"))
	}
	a, err := s.env.Register(s.ctx, name.String())
	if err != nil {
		s.throw(err)
	}
	obj := s.accessorObject(a)
	if err := s.vm.Set(a.Name(), obj); err != nil {
		s.throw(err)
	}
	return obj
}

func (s *jsScript) defineType(call goja.FunctionCall) goja.Value {
	name := call.Argument(0)
	if !present(name) || name.String() == "" {
		s.throw(errors.New("defineType: type name is required"))
	}
	ts := &typeSpec{name: name.String()}

	if arg := call.Argument(1); present(arg) {
		obj := arg.ToObject(s.vm)
		if fields := obj.Get("fields"); present(fields) {
			fo := fields.ToObject(s.vm)
			for _, k := range fo.Keys() {
				ts.fields = append(ts.fields, fieldSpec{name: k, kind: fo.Get(k).String()})
			}
		}
		if defaults := obj.Get("defaults"); present(defaults) {
			m, ok := defaults.Export().(map[string]any)
			if !ok {
				s.throw(fmt.Errorf("defineType %s: defaults must be an object", ts.name))
			}
			ts.defaults = m
		}
		if rules := obj.Get("rules"); present(rules) {
			ro := rules.ToObject(s.vm)
			ts.rules = make(map[string]string)
			for _, k := range ro.Keys() {
				ts.rules[k] = ro.Get(k).String()
			}
		}
		var err error
		if ts.beforeSave, err = s.hook(obj.Get("beforeSave")); err != nil {
			s.throw(fmt.Errorf("defineType %s: beforeSave: %w", ts.name, err))
		}
		if ts.afterSave, err = s.hook(obj.Get("afterSave")); err != nil {
			s.throw(fmt.Errorf("defineType %s: afterSave: %w", ts.name, err))
		}
	}

	t, err := ts.build()
	if err != nil {
		s.throw(err)
	}
	if _, err := s.env.Define(t); err != nil {
		s.throw(err)
	}
	return goja.Undefined()
}

// hook wraps a JavaScript function as a save hook. The hook is called as
// fn(op, label, attrs); a thrown error fails the write with the error's
// message.
func (s *jsScript) hook(v goja.Value) (schema.Hook, error) {
	if !present(v) {
		return nil, nil
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("must be a function")
	}
	vm := s.vm
	return func(_ context.Context, op schema.Op, label string, attrs ir.IRObject) error {
		_, err := fn(goja.Undefined(), vm.ToValue(string(op)), vm.ToValue(label), vm.ToValue(ir.ToAny(attrs)))
		if err == nil {
			return nil
		}
		var exc *goja.Exception
		if errors.As(err, &exc) {
			return errors.New(jsMessage(exc.Value()))
		}
		return err
	}, nil
}

func (s *jsScript) log(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	s.env.Logger().Info("script log",
		"message", strings.Join(parts, " "),
		"line", s.line(),
	)
	return goja.Undefined()
}

func (s *jsScript) accessorObject(a *registry.Accessor) *goja.Object {
	j := &jsAccessor{s: s, a: a}
	j.methods = map[string]goja.Value{
		"upsert": s.vm.ToValue(j.upsert),
		"find":   s.vm.ToValue(j.find),
		"has":    s.vm.ToValue(j.has),
		"labels": s.vm.ToValue(j.labels),
	}
	return s.vm.NewDynamicObject(j)
}

// jsAccessor exposes one accessor to a script. Its label properties are
// resolved on every read, so they always reflect the latest upsert.
type jsAccessor struct {
	s       *jsScript
	a       *registry.Accessor
	methods map[string]goja.Value
}

func (j *jsAccessor) Get(key string) goja.Value {
	if m, ok := j.methods[key]; ok {
		return m
	}
	if key == "name" {
		return j.s.vm.ToValue(j.a.Name())
	}
	if !j.a.Has(key) {
		return nil
	}
	return j.lookup(key)
}

func (j *jsAccessor) Set(string, goja.Value) bool {
	return false
}

func (j *jsAccessor) Has(key string) bool {
	if _, ok := j.methods[key]; ok {
		return true
	}
	return key == "name" || j.a.Has(key)
}

func (j *jsAccessor) Delete(string) bool {
	return false
}

func (j *jsAccessor) Keys() []string {
	entries := j.a.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Label
	}
	return keys
}

func (j *jsAccessor) lookup(label string) goja.Value {
	rec, err := j.a.Lookup(j.s.ctx, label)
	if err != nil {
		j.s.throw(err)
	}
	return j.s.vm.ToValue(recordView(rec))
}

func (j *jsAccessor) upsert(call goja.FunctionCall) goja.Value {
	label := call.Argument(0)
	if !present(label) || label.String() == "" {
		j.s.throw(fmt.Errorf("%s.upsert: label is required", j.a.Name()))
	}

	attrs := ir.IRObject{}
	if arg := call.Argument(1); present(arg) {
		m, ok := arg.Export().(map[string]any)
		if !ok {
			j.s.throw(fmt.Errorf("%s.upsert: attributes must be an object", j.a.Name()))
		}
		var err error
		if attrs, err = ir.ObjectFromMap(m); err != nil {
			j.s.throw(fmt.Errorf("%s.%s: %w", j.a.Name(), label.String(), err))
		}
	}

	if err := j.s.env.Upsert(j.s.ctx, j.a.Name(), label.String(), attrs, j.s.line()); err != nil {
		j.s.throw(err)
	}
	return j.lookup(label.String())
}

func (j *jsAccessor) find(call goja.FunctionCall) goja.Value {
	return j.lookup(call.Argument(0).String())
}

func (j *jsAccessor) has(call goja.FunctionCall) goja.Value {
	return j.s.vm.ToValue(j.a.Has(call.Argument(0).String()))
}

func (j *jsAccessor) labels(goja.FunctionCall) goja.Value {
	return j.s.vm.ToValue(j.Keys())
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

func jsMessage(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); present(m) {
			return m.String()
		}
	}
	if v == nil {
		return "undefined"
	}
	return v.String()
}
