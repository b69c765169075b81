package rowkv

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitGuard registers open tables for a best-effort flush on SIGINT or
// SIGTERM. It does not and cannot help against SIGKILL or os.Exit called
// elsewhere in the process.
var exitGuard = struct {
	once   sync.Once
	mu     sync.Mutex
	tables map[*Table]struct{}
}{tables: make(map[*Table]struct{})}

// registerForExitFlush arranges for t.Close to be attempted if the process
// receives SIGINT or SIGTERM.
func registerForExitFlush(t *Table) {
	exitGuard.mu.Lock()
	exitGuard.tables[t] = struct{}{}
	exitGuard.mu.Unlock()

	exitGuard.once.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go flushOnSignal(sigCh)
	})
}

// unregisterForExitFlush removes t from the exit-flush registry, typically
// because it has already been closed.
func unregisterForExitFlush(t *Table) {
	exitGuard.mu.Lock()
	delete(exitGuard.tables, t)
	exitGuard.mu.Unlock()
}

func flushOnSignal(sigCh chan os.Signal) {
	sig := <-sigCh

	exitGuard.mu.Lock()
	tables := make([]*Table, 0, len(exitGuard.tables))
	for t := range exitGuard.tables {
		tables = append(tables, t)
	}
	exitGuard.mu.Unlock()

	for _, t := range tables {
		_ = t.Close()
	}

	signal.Stop(sigCh)

	// Re-raise so the process actually terminates instead of hanging
	// after our handler returns.
	sigNum, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	_ = syscall.Kill(syscall.Getpid(), sigNum)
}
