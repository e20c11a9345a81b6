// Package command implements the undoable mutation layer. Every change to
// scene items goes through a Command pushed onto a linear bounded Stack;
// UI code never mutates items directly outside a command's Redo/Undo,
// except for live drag previews that are committed with the
// ignore-first-redo pattern.
package command

import (
	"refboard/internal/item"
)

// Command is an invertible mutation. Redo followed by Undo must restore
// bit-identical item state.
type Command interface {
	// Name is a short human-readable label ("move", "scale", ...).
	Name() string
	Redo()
	Undo()
}

// Scene is the minimal scene surface commands need for membership and
// selection bookkeeping. Implemented by *scene.Scene.
type Scene interface {
	AddItem(it item.Item)
	RemoveItem(it item.Item)
	SetSelected(it item.Item, selected bool)
	IsSelected(it item.Item) bool
}

// Stack is a classic linear undo stack with a position cursor. Pushing
// after undoing discards the redone tail; pushing beyond the depth limit
// silently drops the oldest entry.
type Stack struct {
	limit int
	cmds  []Command
	index int // number of commands currently applied
}

// DefaultStackLimit bounds undo history when no limit is configured.
const DefaultStackLimit = 100

// NewStack creates an undo stack holding at most limit commands.
// Non-positive limits fall back to DefaultStackLimit.
func NewStack(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultStackLimit
	}
	return &Stack{limit: limit}
}

// Push applies the command and records it, truncating any redo tail.
func (s *Stack) Push(c Command) {
	s.cmds = append(s.cmds[:s.index], c)
	s.index++
	c.Redo()
	if len(s.cmds) > s.limit {
		drop := len(s.cmds) - s.limit
		s.cmds = append([]Command(nil), s.cmds[drop:]...)
		s.index -= drop
	}
}

// Undo reverts the most recent applied command. Returns false when there
// is nothing to undo.
func (s *Stack) Undo() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	s.cmds[s.index].Undo()
	return true
}

// Redo re-applies the most recently undone command. Returns false when
// there is nothing to redo.
func (s *Stack) Redo() bool {
	if s.index >= len(s.cmds) {
		return false
	}
	s.cmds[s.index].Redo()
	s.index++
	return true
}

// CanUndo reports whether Undo would do anything.
func (s *Stack) CanUndo() bool { return s.index > 0 }

// CanRedo reports whether Redo would do anything.
func (s *Stack) CanRedo() bool { return s.index < len(s.cmds) }

// Len returns the number of recorded commands (applied or undone).
func (s *Stack) Len() int { return len(s.cmds) }

// Index returns the cursor position: the number of applied commands.
func (s *Stack) Index() int { return s.index }

// Clear drops all history, e.g. when a new file is opened.
func (s *Stack) Clear() {
	s.cmds = nil
	s.index = 0
}
