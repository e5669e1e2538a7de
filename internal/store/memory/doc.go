package memory

import "github.com/dostify/dostify/internal/types"

// Compile-time interface compliance checks.
var _ types.SessionStore = (*SessionStore)(nil)
var _ types.TaskStore = (*TaskStore)(nil)
var _ types.MoodStore = (*MoodStore)(nil)
var _ types.UserStore = (*UserStore)(nil)
