// Package storage persists the monitor state as a single JSON document,
// either on the local filesystem or in a Cloud Storage bucket.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"

	"slotwatch/pkg/schedule"
)

const stateObject = "state.json"

// ErrNotFound indicates no state has been persisted yet (first run).
var ErrNotFound = errors.New("storage: state not found")

// IsNotFound checks whether an error means the state does not exist yet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store handles state persistence. With localPath set it writes to a local
// directory; otherwise it uses the given bucket.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// New creates a storage handler.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// Load reads the persisted state. Returns ErrNotFound on first run; a
// corrupt document is returned as an error so the caller can choose to start
// fresh.
func (s *Store) Load(ctx context.Context) (*schedule.State, error) {
	var data []byte

	if s.localPath != "" {
		var err error
		filePath := filepath.Join(s.localPath, stateObject)
		data, err = os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		// Cloud Storage with retry logic for reliability
		var readData []byte
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(stateObject).NewReader(ctx)
				if openErr != nil {
					// Don't retry on "not found" errors
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(ErrNotFound)
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				readData, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(2*time.Minute),
			retry.MaxJitter(10*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying state load after error", "attempt", n, "error", retryErr)
			}),
		)
		if err != nil {
			if IsNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("load after retries: %w", err)
		}
		data = readData
	}

	var st schedule.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	st.Normalize()

	return &st, nil
}

// Save persists the state. The local path writes via a temp file and rename
// so a crash mid-write never leaves a torn state.json for the next start.
func (s *Store) Save(ctx context.Context, st *schedule.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if s.localPath != "" {
		if err := s.writeLocalAtomic(data); err != nil {
			return err
		}
		s.logger.Debug("State saved to local storage",
			"path", filepath.Join(s.localPath, stateObject),
			"slots", st.Current.Total())
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(stateObject).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying state save after error", "attempt", n, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("State saved", "bucket", s.bucket, "slots", st.Current.Total())
	return nil
}

// writeLocalAtomic writes state.json via temp file + rename in the same
// directory.
func (s *Store) writeLocalAtomic(data []byte) error {
	if err := os.MkdirAll(s.localPath, 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.localPath, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.localPath, stateObject)); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
