// Copyright © 2024 The rebug authors

package debugger

import (
	"github.com/luthersystems/rebug/script"
)

// CaptureStack evaluates text without any trap.  On normal completion it
// returns no session identifiers, which is a valid outcome.  On an
// unhandled fault it walks the fault's recorded call chain from
// outermost to innermost and reapplies the capture transform at each
// call site, returning the stored session identifiers in that order.
// Levels whose call-site text cannot be recovered are skipped.  The
// fault value, when any, is returned alongside the identifiers.
func CaptureStack(env *script.Env, store *Store, name, text string) ([]string, *script.Value, error) {
	scope := env.Child()
	ret := scope.LoadString(name, text)
	if ret.Kind != script.KError {
		return nil, nil, nil
	}
	if ret.Stack == nil {
		return nil, ret, nil
	}
	var ids []string
	for i := range ret.Stack.Frames {
		frame := &ret.Stack.Frames[i]
		// Each level re-runs the faulting text with a trap on that
		// level's call site.  The call sites all lie on the fault path,
		// so every recoverable level springs its trap.
		c, err := CaptureFrame(scope, store, name, text, frame)
		if err != nil {
			continue
		}
		ids = append(ids, c.Set.ID)
	}
	return ids, ret, nil
}
