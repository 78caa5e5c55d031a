// Package unreal reconstructs the reflection model of a target process
// (classes, their fields, and live instances) from raw memory, guided by
// a layout.Config, and gives typed read/write access to instance fields.
//
// An Engine is built once per session. Construction indexes the name
// table, enumerates the object table and resolves the class graph of every
// discovered instance; afterwards field values are decoded on demand.
// Engines are not safe for concurrent use.
package unreal

import (
	"fmt"

	"go.uber.org/zap"

	"unreflect/internal/layout"
	"unreflect/internal/memory"
)

// Options adjusts engine construction.
type Options struct {
	// ModuleBase, when non-zero, is the target module's actual load
	// address; the configuration is rebased onto it.
	ModuleBase uint64
	// Logger defaults to the package Logger().
	Logger *zap.Logger
}

// Engine holds everything resolved from one target.
type Engine struct {
	cfg   layout.Config
	off   layout.Offsets
	r     *memory.Reader
	log   *zap.Logger
	kinds kindTable
	names *nameTable

	paths      map[uint64]string
	classes    map[uint64]*Class
	classOrder []*Class
	fields     map[uint64]*Field
	resolving  resolution

	objects     map[uint64]*Object
	objectOrder []*Object
}

// New builds an engine over mem. It fails if any table cannot be read or
// any reachable field has a kind the engine does not recognize.
func New(cfg layout.Config, mem memory.Accessor, opts Options) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if opts.ModuleBase != 0 {
		cfg = cfg.Rebase(opts.ModuleBase)
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	e := &Engine{
		cfg:     cfg,
		off:     cfg.Offsets,
		r:       memory.NewReader(mem, cfg.PointerSize),
		log:     log,
		kinds:   newKindTable(cfg.KindPackage),
		paths:   make(map[uint64]string),
		classes: make(map[uint64]*Class),
		fields:  make(map[uint64]*Field),
		objects: make(map[uint64]*Object),
	}

	var err error
	e.names, err = loadNameTable(e.r, uint64(cfg.GlobalNameArrayAddress),
		cfg.NameEntryIndexOffset, cfg.NameEntryStringOffset,
		cfg.NameItemsPerChunk, cfg.NameMaxChunks, log)
	if err != nil {
		return nil, err
	}

	addrs, err := e.discover()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if _, err := e.addObject(addr); err != nil {
			return nil, err
		}
	}

	log.Info("engine ready",
		zap.Int("objects", len(e.objectOrder)),
		zap.Int("classes", len(e.classOrder)),
		zap.Int("fields", len(e.fields)),
		zap.Int("names", len(e.names.cache)))
	return e, nil
}

// Config returns the effective (defaulted, rebased) configuration.
func (e *Engine) Config() layout.Config { return e.cfg }

// Reader exposes the engine's typed memory view.
func (e *Engine) Reader() *memory.Reader { return e.r }

// Objects returns every discovered instance in discovery order.
func (e *Engine) Objects() []*Object { return e.objectOrder }

// Object returns the instance at addr, or nil.
func (e *Engine) Object(addr uint64) *Object { return e.objects[addr] }

// ObjectByPath returns the first instance whose path is path.
func (e *Engine) ObjectByPath(path string) *Object {
	for _, o := range e.objectOrder {
		if o.Path == path {
			return o
		}
	}
	return nil
}

// ObjectsOf returns the instances whose class is c or derives from it.
func (e *Engine) ObjectsOf(c *Class) []*Object {
	var out []*Object
	for _, o := range e.objectOrder {
		if o.Class != nil && o.Class.IsSubtypeOf(c) {
			out = append(out, o)
		}
	}
	return out
}

// Classes returns every resolved class in resolution order.
func (e *Engine) Classes() []*Class { return e.classOrder }

// Class resolves the class descriptor at addr, reading it from the target
// if it has not been seen yet.
func (e *Engine) Class(addr uint64) (*Class, error) {
	if addr == 0 {
		return nil, fmt.Errorf("%w: null class pointer", ErrInvalidLayout)
	}
	return e.resolveClass(addr)
}

// ClassByPath returns the first resolved class whose path is path.
func (e *Engine) ClassByPath(path string) *Class {
	for _, c := range e.classOrder {
		if c.Path == path {
			return c
		}
	}
	return nil
}

// ResolveName returns the display string of n.
func (e *Engine) ResolveName(n Name) (string, error) {
	return e.names.resolve(n)
}
