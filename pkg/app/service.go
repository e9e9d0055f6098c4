package app

import (
	"context"
	"path/filepath"

	"github.com/kardianos/service"
)

// ServiceName is the name warden registers with the host service manager.
const ServiceName = "warden"

// Program runs warden under a service manager (systemd, launchd, Windows
// SCM) through kardianos/service.
type Program struct {
	params RunParams
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*Program)(nil)

// NewProgram returns a Program that runs with params.
func NewProgram(params RunParams) *Program {
	return &Program{params: params}
}

// Start implements service.Interface. It must not block.
func (p *Program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- RunContext(ctx, p.params) }()
	return nil
}

// Stop implements service.Interface. It returns once every module has
// stopped, with the error Run ended with.
func (p *Program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// ServiceConfig describes the installed service. Paths are made absolute
// because service managers start processes from an unrelated directory.
func ServiceConfig(params RunParams) (*service.Config, error) {
	args := []string{"service", "run"}
	for _, f := range []struct{ flag, path string }{
		{"--config", params.ConfigPath},
		{"--env-file", params.EnvFile},
		{"--data-dir", params.DataDir},
	} {
		if f.path == "" {
			continue
		}
		abs, err := filepath.Abs(f.path)
		if err != nil {
			return nil, err
		}
		args = append(args, f.flag, abs)
	}
	return &service.Config{
		Name:        ServiceName,
		DisplayName: "Warden",
		Description: "LLM-assisted Telegram group moderation bot",
		Arguments:   args,
	}, nil
}
