package core

import "fmt"

// invariant panics in builds tagged fcdebug and is a no-op otherwise.
func invariant(ok bool, msg string) {
	if ok || !debugAssertions {
		return
	}
	panic(fmt.Sprintf("fire-control invariant violated: %s", msg))
}
