//go:build linux

package memory

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Process accesses the memory of a live process through
// process_vm_readv/process_vm_writev. The caller needs ptrace permission
// over the target.
type Process struct {
	pid     int
	stopped bool
}

// OpenProcess attaches to pid without stopping it.
func OpenProcess(pid int) (*Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("memory: invalid pid %d", pid)
	}
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return nil, fmt.Errorf("memory: open process %d: %w", pid, err)
	}
	return &Process{pid: pid}, nil
}

// Pid returns the attached process id.
func (p *Process) Pid() int { return p.pid }

// ReadBytes reads n bytes at addr in the target.
func (p *Process) ReadBytes(addr uint64, n int) ([]byte, error) {
	if p.pid == 0 {
		return nil, ErrProcessNotOpen
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(n)
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: n}}
	got, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv pid %d: %w", p.pid, err)
	}
	if got != n {
		return nil, fmt.Errorf("%w: pid %d at 0x%x: %d of %d bytes", ErrShortRead, p.pid, addr, got, n)
	}
	return buf, nil
}

// WriteBytes writes data at addr in the target.
func (p *Process) WriteBytes(addr uint64, data []byte) error {
	if p.pid == 0 {
		return ErrProcessNotOpen
	}
	if len(data) == 0 {
		return nil
	}
	local := []unix.Iovec{{Base: &data[0]}}
	local[0].SetLen(len(data))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(data)}}
	got, err := unix.ProcessVMWritev(p.pid, local, remote, 0)
	if err != nil {
		return fmt.Errorf("process_vm_writev pid %d: %w", p.pid, err)
	}
	if got != len(data) {
		return fmt.Errorf("%w: pid %d at 0x%x: %d of %d bytes", ErrShortWrite, p.pid, addr, got, len(data))
	}
	return nil
}

// suspendTimeout bounds how long Suspend waits for the stop to land.
const suspendTimeout = 2 * time.Second

// Suspend stops every thread of the target with SIGSTOP and waits until
// /proc reports the process stopped, since the signal is delivered
// asynchronously.
func (p *Process) Suspend() error {
	if p.pid == 0 {
		return ErrProcessNotOpen
	}
	if err := unix.Kill(p.pid, unix.SIGSTOP); err != nil {
		return fmt.Errorf("memory: suspend %d: %w", p.pid, err)
	}
	p.stopped = true
	stat := fmt.Sprintf("/proc/%d/stat", p.pid)
	read := func() ([]byte, error) { return os.ReadFile(stat) }
	if err := waitStopped(read, suspendTimeout, time.Millisecond); err != nil {
		return fmt.Errorf("memory: suspend %d: %w", p.pid, err)
	}
	return nil
}

// Resume continues a target previously stopped by Suspend.
func (p *Process) Resume() error {
	if p.pid == 0 {
		return ErrProcessNotOpen
	}
	if err := unix.Kill(p.pid, unix.SIGCONT); err != nil {
		return fmt.Errorf("memory: resume %d: %w", p.pid, err)
	}
	p.stopped = false
	return nil
}

// ModuleBase returns the load address of the named module.
func (p *Process) ModuleBase(name string) (uint64, error) {
	if p.pid == 0 {
		return 0, ErrProcessNotOpen
	}
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", p.pid))
	if err != nil {
		return 0, fmt.Errorf("memory: maps: %w", err)
	}
	defer f.Close()
	return parseModuleBase(f, name)
}

// Close resumes the target if it is still stopped and detaches.
func (p *Process) Close() error {
	if p.pid == 0 {
		return nil
	}
	var err error
	if p.stopped {
		err = multierr.Append(err, p.Resume())
	}
	p.pid = 0
	return err
}
