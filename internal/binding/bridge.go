package binding

import (
	"fmt"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/dop251/goja"
)

// ScriptExported restricts which methods of a bound object scripts may
// call. Objects that do not implement it expose every exported method.
type ScriptExported interface {
	ScriptMethods() []string
}

var (
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	scriptExported = reflect.TypeOf((*ScriptExported)(nil)).Elem()
)

// Bridge turns host Go values into script objects whose properties are
// the value's methods. Values returned by those methods are bound in turn.
type Bridge struct {
	reg     *Registry
	rt      *goja.Runtime
	objects *Objects
	proxies map[*goja.Object]ObjectID
}

// NewBridge creates a bridge for rt. Objects may be shared with callers
// that need to inspect bindings from other goroutines.
func NewBridge(reg *Registry, rt *goja.Runtime, objects *Objects) *Bridge {
	if objects == nil {
		objects = NewObjects()
	}
	return &Bridge{
		reg:     reg,
		rt:      rt,
		objects: objects,
		proxies: make(map[*goja.Object]ObjectID),
	}
}

// Objects returns the bridge's object table.
func (b *Bridge) Objects() *Objects {
	return b.objects
}

// Wrap binds obj and returns its script proxy.
func (b *Bridge) Wrap(obj any) (*goja.Object, ObjectID, error) {
	if isNil(obj) {
		return nil, 0, ErrNilObject
	}

	v := reflect.ValueOf(obj)
	methods, err := exposedMethods(v)
	if err != nil {
		return nil, 0, err
	}

	typeName := typeName(v.Type())
	id := b.objects.Add(obj)
	in := b.reg.Installer(b.rt, typeName)

	proxy := b.rt.NewObject()
	for _, m := range methods {
		fn := b.methodFunc(v, m)
		if err := proxy.Set(scriptName(m.Name), in.Func(scriptName(m.Name), fn)); err != nil {
			return nil, 0, err
		}
	}
	b.proxies[proxy] = id
	return proxy, id, nil
}

// Unwrap returns the host value behind a proxy created by this bridge.
func (b *Bridge) Unwrap(v goja.Value) (any, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	id, ok := b.proxies[obj]
	if !ok {
		return nil, false
	}
	value, err := b.objects.Lookup(id)
	return value, err == nil
}

// MethodNames lists the script-visible method names of obj.
func MethodNames(obj any) ([]string, error) {
	if isNil(obj) {
		return nil, ErrNilObject
	}
	methods, err := exposedMethods(reflect.ValueOf(obj))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = scriptName(m.Name)
	}
	return names, nil
}

func exposedMethods(v reflect.Value) ([]reflect.Method, error) {
	t := v.Type()

	if exp, ok := v.Interface().(ScriptExported); ok {
		allowed := exp.ScriptMethods()
		methods := make([]reflect.Method, 0, len(allowed))
		for _, name := range allowed {
			m, ok := t.MethodByName(name)
			if !ok || !m.IsExported() {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, typeName(t), name)
			}
			methods = append(methods, m)
		}
		sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
		return methods, nil
	}

	methods := make([]reflect.Method, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || (t.Implements(scriptExported) && m.Name == "ScriptMethods") {
			continue
		}
		methods = append(methods, m)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMethods, typeName(t))
	}
	return methods, nil
}

func (b *Bridge) methodFunc(recv reflect.Value, m reflect.Method) NativeFunc {
	fn := recv.Method(m.Index)
	ft := fn.Type()

	return func(call goja.FunctionCall) goja.Value {
		args, err := b.convertArgs(ft, call.Arguments)
		if err != nil {
			panic(b.rt.NewTypeError("%s: %v", scriptName(m.Name), err))
		}

		var out []reflect.Value
		if ft.IsVariadic() {
			out = fn.CallSlice(args)
		} else {
			out = fn.Call(args)
		}

		if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errorType {
			if errv := out[n-1]; !errv.IsNil() {
				panic(b.rt.NewGoError(errv.Interface().(error)))
			}
			out = out[:n-1]
		}

		switch len(out) {
		case 0:
			return goja.Undefined()
		case 1:
			return b.toValue(out[0])
		default:
			values := make([]any, len(out))
			for i, o := range out {
				values[i] = b.toValue(o)
			}
			return b.rt.NewArray(values...)
		}
	}
}

func (b *Bridge) convertArgs(ft reflect.Type, in []goja.Value) ([]reflect.Value, error) {
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
		if len(in) < fixed {
			return nil, fmt.Errorf("expected at least %d arguments, got %d", fixed, len(in))
		}
	} else if len(in) != fixed {
		return nil, fmt.Errorf("expected %d arguments, got %d", fixed, len(in))
	}

	args := make([]reflect.Value, 0, ft.NumIn())
	for i := 0; i < fixed; i++ {
		arg, err := b.convertArg(in[i], ft.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args = append(args, arg)
	}

	if ft.IsVariadic() {
		elem := ft.In(fixed).Elem()
		rest := reflect.MakeSlice(ft.In(fixed), 0, len(in)-fixed)
		for i := fixed; i < len(in); i++ {
			arg, err := b.convertArg(in[i], elem)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			rest = reflect.Append(rest, arg)
		}
		args = append(args, rest)
	}
	return args, nil
}

func (b *Bridge) convertArg(v goja.Value, t reflect.Type) (reflect.Value, error) {
	if host, ok := b.Unwrap(v); ok {
		hv := reflect.ValueOf(host)
		if hv.Type().AssignableTo(t) {
			return hv, nil
		}
		return reflect.Value{}, fmt.Errorf("bound %s is not assignable to %s", typeName(hv.Type()), t)
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		switch t.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot pass %s as %s", v, t)
	}

	target := reflect.New(t)
	if err := b.rt.ExportTo(v, target.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return target.Elem(), nil
}

// toValue converts a method result. Scalars, strings, slices and maps are
// handed to the runtime as data; anything with identity is bound.
func (b *Bridge) toValue(v reflect.Value) goja.Value {
	if !v.IsValid() {
		return goja.Null()
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return goja.Null()
		}
		return b.toValue(v.Elem())
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return goja.Null()
		}
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Struct:
		if _, err := exposedMethods(v); err != nil {
			return b.rt.ToValue(v.Interface())
		}
		proxy, _, err := b.Wrap(v.Interface())
		if err != nil {
			panic(b.rt.NewGoError(err))
		}
		return proxy
	case reflect.Chan, reflect.UnsafePointer:
		panic(b.rt.NewTypeError("cannot return %s to script", v.Type()))
	default:
		return b.rt.ToValue(v.Interface())
	}
}

func scriptName(goName string) string {
	r, size := utf8.DecodeRuneInString(goName)
	return string(unicode.ToLower(r)) + goName[size:]
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
