package repokit

import (
	"context"
	"fmt"
	"time"
)

// GuardTimeout bounds MustGuard when ctx carries no deadline
const GuardTimeout = 10 * time.Second

type guarder interface {
	Guard(context.Context) error
}

// MustGuard checks the stores a run needs and panics when one is not ready.
// The CLIs call it once, before the first chunk or sweep
func MustGuard(ctx context.Context, st guarder) {
	if st == nil {
		panic("repokit: nil store")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, GuardTimeout)
		defer cancel()
	}
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("repokit: store guard failed: %w", err))
	}
}
