// Package picker holds the session-scoped selection state machine and the
// host-facing session contract. State transitions are pure replacements:
// every event installs a freshly built, internally consistent snapshot, and
// the "all selected" flags are always recomputed, never hand-toggled.
package picker
