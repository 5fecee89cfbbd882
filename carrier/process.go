package carrier

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"baikuk-automation/utils"
)

// ProcessLauncher starts the standalone crawler binary as a child process.
type ProcessLauncher struct {
	argv   []string
	logger *utils.Logger
}

// NewProcessLauncher takes the program and its leading arguments; the phone
// number is appended on each Start.
func NewProcessLauncher(argv []string, logger *utils.Logger) *ProcessLauncher {
	return &ProcessLauncher{argv: argv, logger: logger}
}

// Start spawns the crawler for phone. The returned wait function blocks
// until the process exits and reports a non-zero exit as an error.
func (p *ProcessLauncher) Start(phone string) (func() error, error) {
	if len(p.argv) == 0 {
		return nil, errors.New("carrier: crawler command is empty")
	}

	args := append(append([]string(nil), p.argv[1:]...), phone)
	cmd := exec.Command(p.argv[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("carrier: start %s: %w", p.argv[0], err)
	}
	p.logger.Info("[carrier] Crawler started (pid %d)", cmd.Process.Pid)

	return func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("carrier: crawler exited: %w", err)
		}
		return nil
	}, nil
}
