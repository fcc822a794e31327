// Package manifest writes and reads the deployment output artifact: a flat
// env-format file mapping logical contract names to their package and
// contract hashes. The frontend and follow-up scripts read this file.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dexops/internal/casper"
)

// Reference-kind literals prefixing every hash value in the file
const (
	PackagePrefix  = "package-"
	ContractPrefix = "contract-"
)

// Entry holds the two hashes of one deployed contract
type Entry struct {
	PackageHash  casper.Identifier
	ContractHash casper.Identifier
}

// Manifest maps logical contract names to their deployed hashes. It is
// populated incrementally during a run and written once at the end; insertion
// order is preserved in the file.
type Manifest struct {
	names   []string
	entries map[string]Entry
}

// New creates an empty manifest
func New() *Manifest {
	return &Manifest{entries: make(map[string]Entry)}
}

// CanonicalName normalizes a logical contract name: lowercase with
// underscores. "Pair-Factory" and "pair_factory" address the same entry.
func CanonicalName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// Set records or replaces the entry for a logical name
func (m *Manifest) Set(name string, entry Entry) {
	name = CanonicalName(name)
	if _, exists := m.entries[name]; !exists {
		m.names = append(m.names, name)
	}
	m.entries[name] = entry
}

// Get returns the entry for a logical name
func (m *Manifest) Get(name string) (Entry, bool) {
	e, ok := m.entries[CanonicalName(name)]
	return e, ok
}

// Names returns the logical names in insertion order
func (m *Manifest) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len reports the number of entries
func (m *Manifest) Len() int {
	return len(m.entries)
}

// envKey is the file form of a canonical name: PAIR_FACTORY
func envKey(name string) string {
	return strings.ToUpper(CanonicalName(name))
}

// WriteFile persists the manifest atomically: full content to a temp file in
// the target directory, then a rename. A crashed run never leaves a partial
// manifest behind.
func (m *Manifest) WriteFile(path string) error {
	var b strings.Builder
	b.WriteString("# Deployment manifest, generated by dexops\n")
	for _, name := range m.names {
		e := m.entries[name]
		key := envKey(name)
		fmt.Fprintf(&b, "%s_PACKAGE_HASH=%s%s\n", key, PackagePrefix, e.PackageHash.HexHash())
		fmt.Fprintf(&b, "%s_CONTRACT_HASH=%s%s\n", key, ContractPrefix, e.ContractHash.HexHash())
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("manifest: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("manifest: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("manifest: close: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("manifest: rename into place: %w", err)
	}
	return nil
}

// Load reads a manifest written by WriteFile. Unknown lines are skipped so
// hand-edited files with extra env vars still load. The insertion order of
// the loaded manifest follows the file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	type partial struct {
		pkg, contract *casper.Identifier
	}
	byKey := make(map[string]*partial)
	var order []string

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key, value := line[:eq], line[eq+1:]

		var name string
		var isPkg bool
		switch {
		case strings.HasSuffix(key, "_PACKAGE_HASH"):
			name, isPkg = strings.TrimSuffix(key, "_PACKAGE_HASH"), true
		case strings.HasSuffix(key, "_CONTRACT_HASH"):
			name, isPkg = strings.TrimSuffix(key, "_CONTRACT_HASH"), false
		default:
			continue
		}

		id, err := casper.ParseIdentifier(value)
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", key, err)
		}

		p, ok := byKey[name]
		if !ok {
			p = &partial{}
			byKey[name] = p
			order = append(order, name)
		}
		if isPkg {
			p.pkg = &id
		} else {
			p.contract = &id
		}
	}

	m := New()
	for _, name := range order {
		p := byKey[name]
		e := Entry{}
		if p.pkg != nil {
			e.PackageHash = *p.pkg
		}
		if p.contract != nil {
			e.ContractHash = *p.contract
		}
		m.Set(strings.ToLower(name), e)
	}
	return m, nil
}

// Merge copies every entry of other into m, keeping m's entry on conflict.
// Used to fold a prior run's manifest into the current one for idempotency.
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}
	for _, name := range other.Names() {
		if _, exists := m.entries[name]; exists {
			continue
		}
		e, _ := other.Get(name)
		m.Set(name, e)
	}
}
