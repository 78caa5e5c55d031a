//go:build !linux

package memory

// Process is unavailable on this platform; OpenProcess always fails.
type Process struct{}

func OpenProcess(pid int) (*Process, error) { return nil, ErrUnsupportedPlatform }

func (p *Process) Pid() int { return 0 }

func (p *Process) ReadBytes(addr uint64, n int) ([]byte, error) { return nil, ErrUnsupportedPlatform }

func (p *Process) WriteBytes(addr uint64, data []byte) error { return ErrUnsupportedPlatform }

func (p *Process) Suspend() error { return ErrUnsupportedPlatform }

func (p *Process) Resume() error { return ErrUnsupportedPlatform }

func (p *Process) ModuleBase(name string) (uint64, error) { return 0, ErrUnsupportedPlatform }

func (p *Process) Close() error { return nil }
