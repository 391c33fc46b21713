// Package engine reconciles component trees into renderer edit scripts.
//
// A VirtualDom owns the scope arena, the dirty queue and the mount id
// allocator for one mounted tree. Three driver calls produce edits:
//
//	dom := engine.New(App)
//	edits, err := dom.Rebuild(ctx)          // initial mount
//	edits, err = dom.WorkWithDeadline(ctx, func() bool {
//	    return time.Now().After(deadline)   // checked between scopes
//	})
//	edits, err = dom.HardDiff(ctx, id)      // re-render one scope now
//
// Driver calls are serialized by the VirtualDom. State writes from hooks
// only touch the dirty queue, so they may happen on any goroutine while a
// drive call is running.
//
// # Render errors
//
// A render function that returns an error or panics never tears down what
// is already on screen. The failing scope keeps its previous tree and the
// error is returned from the drive call, joined with any others. A scope
// whose very first render fails is mounted as a placeholder.
package engine
