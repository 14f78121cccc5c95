package journal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/wire"
)

// FileJournal appends alerts to a file, one JSON object per line.
// JSON is produced via protojson so lines match the gRPC payloads.
type FileJournal struct {
	// path is the filesystem location of the journal.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

// NewFileJournal creates a journal at path. The file is created on first Append.
func NewFileJournal(path string) *FileJournal {
	return &FileJournal{
		path: filepath.Clean(path),
	}
}

// Append writes one line.
func (j *FileJournal) Append(_ context.Context, alert *posture.Alert) error {
	msg, err := wire.AlertToStruct(alert)
	if err != nil {
		return err
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	if _, err = f.Write(append(data, '\n')); err != nil {
		_ = f.Close()

		return fmt.Errorf("write journal: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}

	return nil
}

// Recent reads the file and returns the newest alerts first.
// A missing file is an empty journal.
func (j *FileJournal) Recent(_ context.Context, limit int) ([]*posture.Alert, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	contents, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read journal: %w", err)
	}

	var (
		alerts  []*posture.Alert
		scanner = bufio.NewScanner(bytes.NewReader(contents))
		line    int
	)

	for scanner.Scan() {
		line++

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var msg structpb.Struct
		if err = protojson.Unmarshal(text, &msg); err != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", line, err)
		}

		alert, decodeErr := wire.AlertFromStruct(&msg)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", line, decodeErr)
		}

		alerts = append(alerts, alert)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}

	return newestFirst(alerts, limit), nil
}

// Close implements Journal.
func (j *FileJournal) Close() error {
	return nil
}
