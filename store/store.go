package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-verbench/metrics"
)

// CorruptSuffix is appended to a store file that could not be parsed before
// an empty store takes its place.
const CorruptSuffix = ".corrupt"

// SkipPolicy selects which key decides that an input already ran.
type SkipPolicy string

const (
	// SkipByRepetition keys cached results on (repetition, input) across all
	// tag groups. Two batches sharing a repetition index but differing in tag
	// therefore share cached results for same-named inputs. Under both
	// policies records appended during a batch join the cache, so an input
	// listed twice in one batch runs once; the cache is not limited to the
	// results loaded before the batch.
	SkipByRepetition SkipPolicy = "repetition"
	// SkipByTag keys cached results on (repetition, tag, input).
	SkipByTag SkipPolicy = "tagged"
)

// IsValid reports whether the policy is known.
func (p SkipPolicy) IsValid() bool {
	return p == SkipByRepetition || p == SkipByTag
}

type repetitionKey struct {
	repetition int
	name       string
}

type tagKey struct {
	repetition int
	tag        string
	name       string
}

// Store is an append-only result store backed by a single XML document that
// is rewritten in full after every appended record.
type Store struct {
	path  string
	log   log.Logger
	doc   *Document
	byRep map[repetitionKey]*Record
	byTag map[tagKey]*Record
}

// Open loads the store at path. A missing file yields an empty store. A file
// that exists but does not parse is moved aside to path+CorruptSuffix (or
// path+CorruptSuffix+".N" when earlier backups exist) and an empty store is
// returned.
func Open(path string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	s := &Store{
		path:  path,
		log:   logger,
		doc:   &Document{},
		byRep: make(map[repetitionKey]*Record),
		byTag: make(map[tagKey]*Record),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("No existing results, starting empty store", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results file %s: %w", path, err)
	}

	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		logger.Warn("Error parsing existing results, starting empty store", "path", path, "err", err)
		metrics.RecordErrorDetails("store_parse", err)
		backup, err := backupPath(path)
		if err != nil {
			return nil, err
		}
		if err := os.Rename(path, backup); err != nil {
			return nil, fmt.Errorf("failed to move unreadable results file aside: %w", err)
		}
		logger.Warn("Moved unreadable results file", "from", path, "to", backup)
		return s, nil
	}

	s.doc = doc
	for _, g := range doc.Groups {
		for _, rec := range g.Records {
			s.index(g, rec)
		}
	}
	logger.Debug("Loaded existing results", "path", path, "groups", len(doc.Groups), "records", len(s.byTag))
	return s, nil
}

// backupPath returns the first unused backup name for path.
func backupPath(path string) (string, error) {
	candidate := path + CorruptSuffix
	for n := 1; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check backup %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%s.%d", path, CorruptSuffix, n)
	}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Groups returns the groups in document order.
func (s *Store) Groups() []*Group {
	return s.doc.Groups
}

// Group finds the group for (repetition, tag), creating and appending an
// empty one if it does not exist yet. Creating a group does not write.
func (s *Store) Group(repetition int, tag string) *Group {
	for _, g := range s.doc.Groups {
		if g.Repetition == repetition && g.Tag == tag {
			return g
		}
	}
	g := &Group{Repetition: repetition, Tag: tag}
	s.doc.Groups = append(s.doc.Groups, g)
	s.log.Debug("Created result group", "i", repetition, "tags", tag)
	return g
}

// Lookup returns a previously recorded result for the input under the given
// skip policy.
func (s *Store) Lookup(policy SkipPolicy, repetition int, tag, name string) (*Record, bool) {
	var rec *Record
	switch policy {
	case SkipByTag:
		rec = s.byTag[tagKey{repetition: repetition, tag: tag, name: name}]
	default:
		rec = s.byRep[repetitionKey{repetition: repetition, name: name}]
	}
	return rec, rec != nil
}

// Append adds rec to g and rewrites the whole store file. g must have been
// obtained from this store.
func (s *Store) Append(g *Group, rec Record) error {
	rec.Stdout = xmlSafe(rec.Stdout)
	rec.Stderr = xmlSafe(rec.Stderr)
	r := &rec
	g.Records = append(g.Records, r)
	s.index(g, r)
	return s.Save()
}

// Save writes the full document to disk atomically.
func (s *Store) Save() error {
	data, err := s.doc.Encode()
	if err != nil {
		return err
	}
	if err := AtomicWriteFile(s.path, data); err != nil {
		metrics.RecordErrorDetails("store_write", err)
		return fmt.Errorf("failed to write results file %s: %w", s.path, err)
	}
	metrics.RecordStoreWrite(len(data))
	return nil
}

func (s *Store) index(g *Group, rec *Record) {
	s.byRep[repetitionKey{repetition: g.Repetition, name: rec.Name}] = rec
	s.byTag[tagKey{repetition: g.Repetition, tag: g.Tag, name: rec.Name}] = rec
}
