package orchestrator

import (
	"context"
	"sync"
)

// CleanupHook is a class-level (not instance-level) teardown coroutine a
// node or module backend can register: resources shared across every
// instance of that backend, like a cached service-provider key or a
// subprocess pool, live here rather than on any one driver.
type CleanupHook func(ctx context.Context) error

// Cleanup invokes every registered hook concurrently and joins on all of
// them, returning the first error observed (if any) only after every hook
// has finished running.
func (rt *Runtime) Cleanup(ctx context.Context) error {
	hooks := append([]CleanupHook{rt.managerCleanup}, backendCleanupHooks...)

	var wg sync.WaitGroup
	errCh := make(chan error, len(hooks))
	for _, hook := range hooks {
		wg.Add(1)
		go func(hook CleanupHook) {
			defer wg.Done()
			errCh <- hook(ctx)
		}(hook)
	}
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (rt *Runtime) managerCleanup(ctx context.Context) error {
	if rt.Manager == nil {
		return nil
	}
	return rt.Manager.Close()
}

// backendCleanupHooks lists the per-backend class-level hooks. Sancus, SGX,
// native and TrustZone module/node drivers hold no long-lived shared
// resources beyond what Build/Deploy/Attest already clean up as they go
// (temp directories are removed with defer as soon as each operation
// finishes), so every backend hook here is a no-op kept for symmetry with
// the drivers that might one day need one.
var backendCleanupHooks = []CleanupHook{
	func(ctx context.Context) error { return nil }, // sancus
	func(ctx context.Context) error { return nil }, // sgx
	func(ctx context.Context) error { return nil }, // native
	func(ctx context.Context) error { return nil }, // trustzone
}
