package analyzer

import "maps"

// SymbolTable maps declared variable names to their current values.
// The zero value is not usable; create one with NewSymbolTable.
type SymbolTable struct {
	values map[string]float64
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{values: make(map[string]float64)}
}

// Declare inserts name with v. It reports false if name already exists.
func (s *SymbolTable) Declare(name string, v float64) bool {
	if _, ok := s.values[name]; ok {
		return false
	}
	s.values[name] = v
	return true
}

// Lookup returns the current value of name.
func (s *SymbolTable) Lookup(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set overwrites an existing binding. It reports false if name is undeclared.
func (s *SymbolTable) Set(name string, v float64) bool {
	if _, ok := s.values[name]; !ok {
		return false
	}
	s.values[name] = v
	return true
}

func (s *SymbolTable) Len() int {
	return len(s.values)
}

// Snapshot returns a copy of every binding.
func (s *SymbolTable) Snapshot() map[string]float64 {
	return maps.Clone(s.values)
}
