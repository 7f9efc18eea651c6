package core

import (
	"errors"
	"sync"
)

// ErrEmptyAction is returned when registering an action without a name
var ErrEmptyAction = errors.New("action name is empty")

// Command is one recognized action: the text after s<id>_ and the effect
// it has on a single output line.
type Command struct {
	ID     uint16
	Name   string   // Action text, e.g. "LED_RED_ON"
	Output string   // Output line name, e.g. "LED_RED"
	Op     OutputOp // Effect on the output
}

// CommandRegistry holds all recognized actions
type CommandRegistry struct {
	mu         sync.RWMutex
	commands   map[uint16]*Command
	nameToID   map[string]uint16
	nextID     uint16
	dictionary string // Printable list for host tools
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds an action. If the name is already registered the first
// registration wins and its ID is returned unchanged.
func (r *CommandRegistry) Register(name string, output string, op OutputOp) (uint16, error) {
	if name == "" {
		return 0, ErrEmptyAction
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id, nil
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:     id,
		Name:   name,
		Output: output,
		Op:     op,
	}
	r.nameToID[name] = id

	r.rebuildDictionary()

	return id, nil
}

// Lookup retrieves a command by its action text
func (r *CommandRegistry) Lookup(action []byte) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[string(action)]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Commands returns every command in registration order
func (r *CommandRegistry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]Command, 0, len(r.commands))
	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			cmds = append(cmds, *cmd)
		}
	}
	return cmds
}

// GetDictionary returns one "ACTION output op" line per command
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dictionary
}

// rebuildDictionary rebuilds the dictionary string
// Must be called with lock held
func (r *CommandRegistry) rebuildDictionary() {
	dict := ""
	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			dict += cmd.Name + " " + cmd.Output + " " + cmd.Op.String() + "\n"
		}
	}
	r.dictionary = dict
}
