package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"unreflect/internal/layout"
	"unreflect/internal/memory"
	"unreflect/internal/unreal"
)

// targetFlags are the flags every subcommand shares for locating and
// opening a target.
type targetFlags struct {
	config     *string
	pid        *int
	module     *string
	noSuspend  *bool
	image      *string
	core       *string
	imageBase  *string
	moduleBase *string
	json       *bool
}

func addTargetFlags(fs *flag.FlagSet) *targetFlags {
	return &targetFlags{
		config:     fs.String("config", "", "layout config (.json, .toml, .yaml)"),
		pid:        fs.Int("pid", 0, "target process id"),
		module:     fs.String("module", "", "module used to rebase the config (default: config module)"),
		noSuspend:  fs.Bool("no-suspend", false, "do not stop the process while reading"),
		image:      fs.String("image", "", "raw memory image instead of a process"),
		core:       fs.String("core", "", "ELF core dump instead of a process"),
		imageBase:  fs.String("image-base", "0", "address of the image's first byte"),
		moduleBase: fs.String("module-base", "0", "actual module load address for an image or core"),
		json:       fs.Bool("json", false, "JSON output"),
	}
}

// session is one opened target with its engine.
type session struct {
	eng  *unreal.Engine
	log  *zap.Logger
	proc *memory.Process
	core *memory.Core

	suspended bool
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("UNREFLECT_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// open attaches to the target, suspends it unless asked not to, and
// builds the engine. The caller must Close the session.
func (tf *targetFlags) open() (*session, error) {
	if *tf.config == "" {
		return nil, fmt.Errorf("--config is required")
	}
	targets := 0
	for _, set := range []bool{*tf.pid != 0, *tf.image != "", *tf.core != ""} {
		if set {
			targets++
		}
	}
	if targets != 1 {
		return nil, fmt.Errorf("exactly one of --pid, --image or --core is required")
	}

	log, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	unreal.SetLogger(log)

	cfg, err := layout.Load(*tf.config)
	if err != nil {
		return nil, err
	}

	s := &session{log: log}
	var mem memory.Accessor
	var base uint64

	switch {
	case *tf.core != "":
		mb, err := layout.ParseAddress(*tf.moduleBase)
		if err != nil {
			return nil, fmt.Errorf("--module-base: %w", err)
		}
		c, err := memory.OpenCore(*tf.core)
		if err != nil {
			return nil, err
		}
		log.Debug("core opened",
			zap.String("path", *tf.core),
			zap.Stringer("machine", c.Machine()),
			zap.Int("segments", len(c.Segments())))
		s.core = c
		mem, base = c, uint64(mb)

	case *tf.image != "":
		ib, err := layout.ParseAddress(*tf.imageBase)
		if err != nil {
			return nil, fmt.Errorf("--image-base: %w", err)
		}
		mb, err := layout.ParseAddress(*tf.moduleBase)
		if err != nil {
			return nil, fmt.Errorf("--module-base: %w", err)
		}
		img, err := memory.LoadImage(*tf.image, uint64(ib))
		if err != nil {
			return nil, err
		}
		log.Debug("image loaded",
			zap.String("path", *tf.image),
			zap.Uint64("base", uint64(ib)),
			zap.Int("size", img.Size()))
		mem, base = img, uint64(mb)

	default:
		p, err := memory.OpenProcess(*tf.pid)
		if err != nil {
			return nil, err
		}
		s.proc = p
		mem = p

		module := *tf.module
		if module == "" {
			module = cfg.Module
		}
		if module != "" {
			if base, err = p.ModuleBase(module); err != nil {
				return nil, multierr.Append(err, s.Close())
			}
			log.Debug("module located", zap.String("module", module), zap.Uint64("base", base))
		}
		if !*tf.noSuspend {
			if err := p.Suspend(); err != nil {
				return nil, multierr.Append(err, s.Close())
			}
			s.suspended = true
		}
	}

	s.eng, err = unreal.New(cfg, mem, unreal.Options{ModuleBase: base, Logger: log})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("engine: %w", err), s.Close())
	}
	return s, nil
}

// Close resumes and detaches from the process, if any.
func (s *session) Close() error {
	var err error
	if s.core != nil {
		err = multierr.Append(err, s.core.Close())
		s.core = nil
	}
	if s.proc != nil {
		if s.suspended {
			err = multierr.Append(err, s.proc.Resume())
			s.suspended = false
		}
		err = multierr.Append(err, s.proc.Close())
		s.proc = nil
	}
	_ = s.log.Sync()
	return err
}

// object looks up a discovered object by path, falling back to an
// address.
func (s *session) object(ref string) (*unreal.Object, error) {
	if o := s.eng.ObjectByPath(ref); o != nil {
		return o, nil
	}
	if a, err := layout.ParseAddress(ref); err == nil {
		if o := s.eng.Object(uint64(a)); o != nil {
			return o, nil
		}
	}
	return nil, fmt.Errorf("no object %q", ref)
}

// class looks up a resolved class by path, falling back to an address.
func (s *session) class(ref string) (*unreal.Class, error) {
	if c := s.eng.ClassByPath(ref); c != nil {
		return c, nil
	}
	if a, err := layout.ParseAddress(ref); err == nil {
		for _, c := range s.eng.Classes() {
			if c.Address == uint64(a) {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("no class %q", ref)
}
