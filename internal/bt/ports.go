package bt

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PortDirection is the data flow direction of a port.
type PortDirection int

const (
	PortInput PortDirection = iota
	PortOutput
	PortInOut
)

func (d PortDirection) String() string {
	switch d {
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	default:
		return "inout"
	}
}

// PortInfo declares a named, typed port.
type PortInfo struct {
	Name        string
	Direction   PortDirection
	Type        reflect.Type
	Description string
	// Default is a literal used when a blackboard-bound input has no value.
	Default    string
	HasDefault bool
}

// InputPort declares an input port of type T.
func InputPort[T any](name, description string) PortInfo {
	return PortInfo{Name: name, Direction: PortInput, Type: reflect.TypeFor[T](), Description: description}
}

// OutputPort declares an output port of type T.
func OutputPort[T any](name, description string) PortInfo {
	return PortInfo{Name: name, Direction: PortOutput, Type: reflect.TypeFor[T](), Description: description}
}

// BidirectionalPort declares a port of type T that is both read and written.
func BidirectionalPort[T any](name, description string) PortInfo {
	return PortInfo{Name: name, Direction: PortInOut, Type: reflect.TypeFor[T](), Description: description}
}

// WithDefault returns a copy of the declaration with a default literal.
func (p PortInfo) WithDefault(literal string) PortInfo {
	p.Default = literal
	p.HasDefault = true
	return p
}

// Ports is the set of ports of one node, bound to a blackboard.
//
// A binding is either a blackboard pointer, written "{key}", or a literal
// string that is converted to the port type on read. Ports missing from the
// remapping are bound to the blackboard key of the same name.
type Ports struct {
	bb       *Blackboard
	info     map[string]PortInfo
	bindings map[string]string
}

// NewPorts validates remap against decls and binds the ports to bb.
// Blackboard-bound ports declare their key with the port type, so two nodes
// disagreeing on the type of a shared key fail here.
func NewPorts(bb *Blackboard, decls []PortInfo, remap map[string]string) (*Ports, error) {
	if bb == nil {
		return nil, fmt.Errorf("bt: ports require a blackboard")
	}
	p := &Ports{
		bb:       bb,
		info:     make(map[string]PortInfo, len(decls)),
		bindings: make(map[string]string, len(decls)),
	}
	for _, d := range decls {
		if d.Name == "" || d.Type == nil {
			return nil, fmt.Errorf("bt: port declaration requires a name and a type")
		}
		if _, dup := p.info[d.Name]; dup {
			return nil, fmt.Errorf("bt: port %q declared twice", d.Name)
		}
		p.info[d.Name] = d
		p.bindings[d.Name] = "{" + d.Name + "}"
	}
	for name, binding := range remap {
		d, ok := p.info[name]
		if !ok {
			return nil, logicError("ports", ErrUnknownPort, "%q", name)
		}
		if _, isKey := ParseKey(binding); !isKey && d.Direction != PortInput {
			return nil, logicError("ports", ErrPortDirection, "port %q writes and needs a {key} binding, got %q", name, binding)
		}
		p.bindings[name] = binding
	}
	for name, binding := range p.bindings {
		if key, isKey := ParseKey(binding); isKey {
			if err := bb.Declare(key, p.info[name].Type); err != nil {
				return nil, fmt.Errorf("bt: binding port %q: %w", name, err)
			}
		}
	}
	return p, nil
}

// ParseKey reports whether binding is a blackboard pointer and returns the key.
func ParseKey(binding string) (string, bool) {
	s := strings.TrimSpace(binding)
	if len(s) >= 3 && s[0] == '{' && s[len(s)-1] == '}' {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// Blackboard returns the blackboard ports are bound to.
func (p *Ports) Blackboard() *Blackboard { return p.bb }

// Info returns the declaration of a port.
func (p *Ports) Info(name string) (PortInfo, bool) {
	d, ok := p.info[name]
	return d, ok
}

// Binding returns the raw binding of a port.
func (p *Ports) Binding(name string) (string, bool) {
	b, ok := p.bindings[name]
	return b, ok
}

// Names returns the declared port names, sorted.
func (p *Ports) Names() []string {
	names := make([]string, 0, len(p.info))
	for name := range p.info {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Ports) lookup(name string, typ reflect.Type, write bool) (PortInfo, string, error) {
	d, ok := p.info[name]
	if !ok {
		return d, "", logicError("ports", ErrUnknownPort, "%q", name)
	}
	if typ != d.Type && d.Type.Kind() != reflect.Interface {
		return d, "", logicError("ports", ErrPortType, "port %q is %v, accessed as %v", name, d.Type, typ)
	}
	if write && d.Direction == PortInput || !write && d.Direction == PortOutput {
		return d, "", logicError("ports", ErrPortDirection, "port %q is an %v port", name, d.Direction)
	}
	return d, p.bindings[name], nil
}

// GetInput reads an input port as T.
func GetInput[T any](p *Ports, name string) (T, error) {
	var zero T
	d, binding, err := p.lookup(name, reflect.TypeFor[T](), false)
	if err != nil {
		return zero, err
	}
	key, isKey := ParseKey(binding)
	if !isKey {
		return convertLiteral[T](name, binding)
	}
	v, err := GetValue[T](p.bb, key)
	if err != nil && d.HasDefault && !p.bb.Has(key) {
		return convertLiteral[T](name, d.Default)
	}
	return v, err
}

// SetOutput writes v to an output port.
func SetOutput[T any](p *Ports, name string, v T) error {
	_, binding, err := p.lookup(name, reflect.TypeFor[T](), true)
	if err != nil {
		return err
	}
	key, _ := ParseKey(binding)
	return p.bb.Set(key, v)
}

var durationType = reflect.TypeFor[time.Duration]()

// convertLiteral parses s into T for the basic kinds.
func convertLiteral[T any](port, s string) (T, error) {
	var zero T
	out := reflect.New(reflect.TypeFor[T]()).Elem()
	fail := func(err error) (T, error) {
		return zero, logicError("ports", ErrPortType, "port %q: cannot convert %q to %v: %v", port, s, out.Type(), err)
	}
	if out.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fail(err)
		}
		out.SetInt(int64(d))
		return out.Interface().(T), nil
	}
	switch out.Kind() {
	case reflect.String:
		out.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fail(err)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, out.Type().Bits())
		if err != nil {
			return fail(err)
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, out.Type().Bits())
		if err != nil {
			return fail(err)
		}
		out.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, out.Type().Bits())
		if err != nil {
			return fail(err)
		}
		out.SetFloat(f)
	case reflect.Interface:
		if out.Type().NumMethod() != 0 {
			return fail(fmt.Errorf("unsupported interface"))
		}
		out.Set(reflect.ValueOf(s))
	default:
		return fail(fmt.Errorf("unsupported kind %v", out.Kind()))
	}
	return out.Interface().(T), nil
}
