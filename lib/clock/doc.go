// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by sourcetree
// components that expire cache entries or debounce filesystem events.
//
// Production code holds a Clock field set to Real(). Tests use Fake(),
// whose time stands still until Advance is called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	gate := rojo.NewGate(runner, fake)
//	fake.Advance(31 * time.Second) // cached results are now stale
//
// Only the two operations sourcetree needs are abstracted: reading the
// current time and scheduling a callback. Components that want
// expiry check timestamps lazily against Now instead of running
// background timers.
package clock
