package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

// MetricsDir holds one JSON-lines file per collection.
const MetricsDir = ".eemetrics"

// FilesystemStore is a metrics.Store backed by append-only JSON-lines files.
type FilesystemStore struct {
	mu          sync.RWMutex
	root        string
	retryConfig retry.Config
	now         func() time.Time
}

func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		now: time.Now,
	}
}

// Root returns the directory containing MetricsDir.
func (s *FilesystemStore) Root() string {
	return s.root
}

// ResolvePath returns the file of a collection, rejecting names that
// would escape MetricsDir.
func (s *FilesystemStore) ResolvePath(collection string) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("collection cannot be empty")
	}

	baseDir := filepath.Join(s.root, MetricsDir)
	cleanPath := filepath.Clean(filepath.Join(baseDir, collection+".jsonl"))

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid collection: %s", collection)
	}
	return cleanPath, nil
}

func (s *FilesystemStore) Initialize() error {
	if err := os.MkdirAll(filepath.Join(s.root, MetricsDir), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", MetricsDir, err)
	}
	return nil
}

// Insert validates every document, stamps them with one timestamp and
// appends each to its collection file.
func (s *FilesystemStore) Insert(ctx context.Context, docs ...metrics.Document) error {
	if err := metrics.ValidateAll(docs...); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Initialize(); err != nil {
		return err
	}

	now := s.now()
	lines := make(map[string]*bytes.Buffer)
	var order []string
	for _, doc := range docs {
		doc.Stamp(now)
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s document: %w", doc.Collection(), err)
		}
		buf, ok := lines[doc.Collection()]
		if !ok {
			buf = &bytes.Buffer{}
			lines[doc.Collection()] = buf
			order = append(order, doc.Collection())
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	return s.appendAll(order, lines)
}

type pendingAppend struct {
	collection string
	file       *os.File
	size       int64
	data       []byte
}

// appendAll opens every collection file before writing any of them. A
// failed write truncates the files already written back to their original
// size, so a batch is stored whole or not at all.
func (s *FilesystemStore) appendAll(order []string, lines map[string]*bytes.Buffer) (err error) {
	pending := make([]*pendingAppend, 0, len(order))
	defer func() {
		for _, p := range pending {
			if cerr := p.file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", p.collection, cerr)
			}
		}
	}()

	for _, collection := range order {
		p, err := s.openAppend(collection)
		if err != nil {
			return err
		}
		p.data = lines[collection].Bytes()
		pending = append(pending, p)
	}

	for i, p := range pending {
		if _, err := p.file.Write(p.data); err != nil {
			werr := fmt.Errorf("write %s: %w", p.collection, err)
			for _, done := range pending[:i+1] {
				if terr := done.file.Truncate(done.size); terr != nil {
					werr = errors.Join(werr, fmt.Errorf("roll back %s: %w", done.collection, terr))
				}
			}
			return werr
		}
	}
	return nil
}

func (s *FilesystemStore) openAppend(collection string) (*pendingAppend, error) {
	path, err := s.ResolvePath(collection)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", collection, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", collection, err)
	}
	return &pendingAppend{collection: collection, file: f, size: info.Size()}, nil
}

// Latest decodes the newest document of collection with the given key.
// Documents stamped at the same instant resolve to the last written.
func (s *FilesystemStore) Latest(ctx context.Context, collection, key string, out metrics.Document) error {
	field := metrics.KeyField(collection)
	if field == "" {
		return fmt.Errorf("unknown collection: %s", collection)
	}

	data, err := s.read(ctx, collection)
	if err != nil {
		return err
	}

	var (
		latest     []byte
		latestTime time.Time
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var head map[string]json.RawMessage
		if err := json.Unmarshal(line, &head); err != nil {
			return fmt.Errorf("failed to parse %s record: %w", collection, err)
		}
		var k string
		if err := json.Unmarshal(head[field], &k); err != nil || k != key {
			continue
		}
		var created time.Time
		if raw, ok := head["document_created_at"]; ok {
			_ = json.Unmarshal(raw, &created)
		}
		if latest == nil || !created.Before(latestTime) {
			latest = append([]byte(nil), line...)
			latestTime = created
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", collection, err)
	}
	if latest == nil {
		return fmt.Errorf("%s %s=%s: %w", collection, field, key, metrics.ErrNotFound)
	}

	if err := json.Unmarshal(latest, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s document: %w", collection, err)
	}
	return nil
}

// read returns the collection file, or nil when it does not exist yet.
func (s *FilesystemStore) read(ctx context.Context, collection string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	retryer := retry.New[[]byte](s.retryConfig)
	return retryer.Do(ctx, func(ctx context.Context) ([]byte, error) {
		path, err := s.ResolvePath(collection)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", collection, err)
		}
		return data, nil
	})
}

func (s *FilesystemStore) Close(context.Context) error {
	return nil
}
