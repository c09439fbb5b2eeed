package storage

import (
	"context"
	"path/filepath"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

// QueueFileName is the per-day queue artifact.
const QueueFileName = "outreach-queue.json"

// FileQueueStore keeps one queue per day at <root>/<day>/outreach-queue.json.
type FileQueueStore struct {
	root string
}

var _ ports.QueueStore = (*FileQueueStore)(nil)

// NewFileQueueStore roots the store at the storage directory.
func NewFileQueueStore(root string) *FileQueueStore {
	return &FileQueueStore{root: root}
}

// Path returns where the queue for day lives.
func (s *FileQueueStore) Path(day string) string {
	return filepath.Join(s.root, day, QueueFileName)
}

// Save overwrites the day's queue.
func (s *FileQueueStore) Save(_ context.Context, day string, queue domain.Queue) (string, error) {
	if queue.Emails == nil {
		queue.Emails = []domain.Message{}
	}
	path := s.Path(day)
	if err := writeJSON(path, queue); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the day's queue; found is false when none was generated.
func (s *FileQueueStore) Load(_ context.Context, day string) (domain.Queue, bool, error) {
	var queue domain.Queue
	found, err := readJSON(s.Path(day), &queue)
	if err != nil || !found {
		return domain.Queue{}, false, err
	}
	return queue, true, nil
}
