package sheetrec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

type schemaKey struct {
	documentID string
	sheetID    int64
}

type profileEntry struct {
	depth       int
	description string
}

// Session caches inferred schemas per (document, sheet) between Open and Close.
// Schemas are not kept across sessions because a header row may change in between.
type Session struct {
	mu      sync.RWMutex
	opened  bool
	schemas map[schemaKey]Schema
	renames map[string]string

	profiling     bool
	profileStack  []string
	profileLog    []profileEntry
	profileCounts map[string]int
}

// NewSession creates a closed session. renames maps normalized header names
// to the field names records should use instead.
func NewSession(renames map[string]string) *Session {
	r := make(map[string]string, len(renames))
	for k, v := range renames {
		r[k] = v
	}
	return &Session{renames: r}
}

// Open activates the session. Opening an open session keeps its schemas.
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		s.schemas = make(map[schemaKey]Schema)
		s.opened = true
	}
}

// Close drops every cached schema. Closing a closed session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemas = nil
	s.opened = false
}

// IsOpen reports whether the session is active
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.opened
}

// Schema returns the cached schema of a sheet
func (s *Session) Schema(documentID string, sheet Sheet) (Schema, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.opened {
		return Schema{}, false, ErrNoSession
	}
	schema, ok := s.schemas[schemaKey{documentID, sheet.ID}]
	return schema, ok, nil
}

// SetSchema installs or replaces the cached schema of a sheet
func (s *Session) SetSchema(documentID string, sheet Sheet, schema Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return ErrNoSession
	}
	s.schemas[schemaKey{documentID, sheet.ID}] = schema
	return nil
}

// Size returns the number of cached schemas
func (s *Session) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.schemas)
}

// Renames returns a copy of the rename rules
func (s *Session) Renames() map[string]string {
	out := make(map[string]string, len(s.renames))
	for k, v := range s.renames {
		out[k] = v
	}
	return out
}

// CreateSchema infers a schema from header using the session rename rules
func (s *Session) CreateSchema(header []interface{}) Schema {
	return CreateSchema(header, s.renames)
}

// EnableProfiling starts recording profiling events and resets earlier ones
func (s *Session) EnableProfiling() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiling = true
	s.profileStack = nil
	s.profileLog = nil
	s.profileCounts = make(map[string]int)
}

// ProfilingEnabled reports whether profiling events are recorded
func (s *Session) ProfilingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profiling
}

// ProfileContextPush opens a named context; later events are nested below it.
// Begin and End entries carry the full context path.
func (s *Session) ProfileContextPush(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.profiling {
		return
	}
	depth := len(s.profileStack)
	s.profileStack = append(s.profileStack, name)
	s.profileLog = append(s.profileLog, profileEntry{depth, "Begin Context: " + strings.Join(s.profileStack, " / ")})
}

// ProfileContextPop closes the innermost context
func (s *Session) ProfileContextPop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.profiling || len(s.profileStack) == 0 {
		return
	}
	path := strings.Join(s.profileStack, " / ")
	s.profileStack = s.profileStack[:len(s.profileStack)-1]
	s.profileLog = append(s.profileLog, profileEntry{len(s.profileStack), "End Context: " + path})
}

// ProfileEvent records one event of the given type
func (s *Session) ProfileEvent(kind, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.profiling {
		return
	}
	s.profileLog = append(s.profileLog, profileEntry{len(s.profileStack), fmt.Sprintf("%s: %s", kind, name)})
	s.profileCounts[kind]++
}

// ProfileCount returns how many events of a type were recorded
func (s *Session) ProfileCount(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profileCounts[kind]
}

// ProfileDump writes event counts (ascending) followed by the indented event history
func (s *Session) ProfileDump(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.profiling {
		return nil
	}

	kinds := make([]string, 0, len(s.profileCounts))
	for k := range s.profileCounts {
		kinds = append(kinds, k)
	}
	sort.SliceStable(kinds, func(i, j int) bool {
		if s.profileCounts[kinds[i]] == s.profileCounts[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return s.profileCounts[kinds[i]] < s.profileCounts[kinds[j]]
	})

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Event Counts:")
	for _, k := range kinds {
		fmt.Fprintf(bw, "  %s: %d\n", k, s.profileCounts[k])
	}
	for _, e := range s.profileLog {
		fmt.Fprintf(bw, "%s%s\n", strings.Repeat("  ", e.depth), e.description)
	}
	return bw.Flush()
}

// ProfileDumpFile writes ProfileDump output to path
func (s *Session) ProfileDumpFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile dump: %w", err)
	}
	defer f.Close()

	return s.ProfileDump(f)
}
