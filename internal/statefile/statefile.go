// Package statefile persists the bridge's resource graph, aux table, and
// auth tokens to a single versioned YAML document (spec.md §6), migrating
// older schema versions on read the way the teacher's internal/storage
// versioned-store primitive (internal/storage/state.go, since superseded
// by this package for the canonical on-disk document) tracks a version
// per record.
package statefile

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/nilclass/huebridge/internal/bridgeerr"
	"github.com/nilclass/huebridge/internal/resource"
)

// CurrentVersion is the schema version this package writes. Bumping it
// requires a migration step in Load (spec.md §6 "version bumps MUST be
// accompanied by a migration").
const CurrentVersion = 1

// Document is the on-disk shape of the state file.
type Document struct {
	Version      int                         `yaml:"version"`
	AuthTokens   map[string]string           `yaml:"auth_tokens,omitempty"`
	AuxTable     []resource.AuxSnapshotEntry `yaml:"aux_table,omitempty"`
	ResourceGraph []resource.SnapshotEntry   `yaml:"resource_graph,omitempty"`
}

// docV0 is the legacy (version 0) document shape: the resource graph was
// keyed by a bare string id, with no link/aux distinction.
type docV0 struct {
	AuthTokens    map[string]string        `yaml:"auth_tokens,omitempty"`
	ResourceGraph map[string]map[string]any `yaml:"resource_graph,omitempty"`
}

// Load reads the state document at path. A missing file is not an error:
// it returns an empty Document ready to be populated at version
// CurrentVersion (first boot). A present-but-corrupt file is fatal
// (spec.md §7 "state file unreadable and non-empty").
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Document{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statefile: %w: %w", bridgeerr.ErrStateFileCorrupt, err)
	}
	if len(data) == 0 {
		return &Document{Version: CurrentVersion}, nil
	}

	var probe struct {
		Version int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("statefile: %w: %w", bridgeerr.ErrStateFileCorrupt, err)
	}

	if probe.Version == 0 {
		return migrateFromV0(path, data)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("statefile: %w: %w", bridgeerr.ErrStateFileCorrupt, err)
	}
	return &doc, nil
}

// migrateFromV0 renames the version-0 file aside and produces an empty
// current-version document carrying forward only the auth tokens: version
// 0's resource graph has no stable link/type shape to map onto the
// current one, so the resource graph is rebuilt from the live back-ends
// on the next reconcile instead of being translated field-by-field (the
// back-ends re-announce their full inventory on (re)connect, spec.md
// §4.4 "a resync message from z2m overwrites the device inventory").
func migrateFromV0(path string, data []byte) (*Document, error) {
	var v0 docV0
	if err := yaml.Unmarshal(data, &v0); err != nil {
		return nil, fmt.Errorf("statefile: %w: %w", bridgeerr.ErrStateFileCorrupt, err)
	}

	backupPath := path + ".v0.bak"
	if err := os.Rename(path, backupPath); err != nil {
		return nil, fmt.Errorf("statefile: renaming v0 document: %w", err)
	}
	log.Warn().Str("backup", backupPath).Msg("migrated version-0 state document")

	return &Document{
		Version:    CurrentVersion,
		AuthTokens: v0.AuthTokens,
	}, nil
}

// Save writes doc to path atomically (write to a temp file, then rename),
// so a crash mid-write never leaves a corrupt document behind.
func Save(path string, doc *Document) error {
	doc.Version = CurrentVersion

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("statefile: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("statefile: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("statefile: rename: %w", err)
	}
	return nil
}

// FromStore builds a Document snapshot of store's current resource graph
// and aux table, preserving whatever auth tokens were already on disk.
func FromStore(store *resource.Store, authTokens map[string]string) (*Document, error) {
	graph, aux, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Document{
		Version:       CurrentVersion,
		AuthTokens:    authTokens,
		AuxTable:      aux,
		ResourceGraph: graph,
	}, nil
}

// RestoreInto repopulates store from doc's resource graph and aux table.
func RestoreInto(store *resource.Store, doc *Document) error {
	return store.Restore(doc.ResourceGraph, doc.AuxTable)
}
