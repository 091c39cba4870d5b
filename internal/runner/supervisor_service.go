package runner

import (
	"context"
	"fmt"
)

// supervisorService adapts a Runner's dispatcher lifecycle to suture's Serve
// pattern: it starts the dispatcher loop on its own background context (so a
// supervisor restart does not race an in-flight graceful drain), waits for
// the supervisor to cancel ctx, then drives a bounded Shutdown before
// returning.
type supervisorService struct {
	r *Runner
}

// Serve implements suture.Service.
func (s *supervisorService) Serve(ctx context.Context) error {
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go s.r.d.run(runCtx)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.r.d.cfg.ShutdownDeadline)
	defer cancel()

	if err := s.r.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("runner %q shutdown: %w", s.r.d.cfg.Name, err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for logging. Suture uses this to identify
// the service in log messages.
func (s *supervisorService) String() string {
	return s.r.d.cfg.Name
}
