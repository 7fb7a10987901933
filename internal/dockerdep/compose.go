package dockerdep

import (
	"context"
	"fmt"
	"time"
)

const composeUpTimeout = 60 * time.Second

// Compose is the dependency bootstrapper: it invokes the orchestrator's
// declarative "bring up" operation for named services, then waits a fixed
// settle delay so the services have a chance to accept connections before
// the next probe.
type Compose struct {
	client *Client
	file   string
	dir    string
	settle time.Duration
}

func NewCompose(client *Client, file, dir string, settle time.Duration) *Compose {
	if settle <= 0 {
		settle = 5 * time.Second
	}
	return &Compose{client: client, file: file, dir: dir, settle: settle}
}

// Up brings up exactly the given services and waits the settle delay.
func (c *Compose) Up(ctx context.Context, services []string) error {
	if len(services) == 0 {
		return nil
	}
	args := []string{"compose"}
	if c.file != "" {
		args = append(args, "-f", c.file)
	}
	args = append(args, "up", "-d")
	args = append(args, services...)

	cctx, cancel := context.WithTimeout(ctx, composeUpTimeout)
	defer cancel()
	out, err := c.client.run(cctx, c.dir, c.client.bin, args...)
	if err != nil {
		return fmt.Errorf("compose up %v: %w (%s)", services, err, firstLine(out))
	}

	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
	}
	return nil
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
