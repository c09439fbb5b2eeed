package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/ports"
)

var dayDir = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DirectoryFeed reads the newest batch the discovery job left under the storage
// root, looking at <root>/YYYY-MM-DD/<fileName> from the most recent day back.
type DirectoryFeed struct {
	root     string
	fileName string
	logger   *slog.Logger
}

var _ ports.OpportunityFeed = (*DirectoryFeed)(nil)

// NewDirectoryFeed builds a feed over root.
func NewDirectoryFeed(root, fileName string, logger *slog.Logger) *DirectoryFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryFeed{root: root, fileName: fileName, logger: logger}
}

// Name identifies the provider.
func (f *DirectoryFeed) Name() string {
	return "directory"
}

// Latest decodes the first batch found scanning day directories in descending order.
func (f *DirectoryFeed) Latest(_ context.Context) (domain.OpportunityBatch, error) {
	path, err := f.locate()
	if err != nil {
		return domain.OpportunityBatch{}, err
	}

	f.logger.Info("loading opportunities", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.OpportunityBatch{}, fmt.Errorf("read feed %s: %w", path, err)
	}

	var batch domain.OpportunityBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return domain.OpportunityBatch{}, domain.Corrupt(path, err)
	}
	return batch, nil
}

func (f *DirectoryFeed) locate() (string, error) {
	entries, err := os.ReadDir(f.root)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", domain.ErrInputNotFound, f.root)
	}
	if err != nil {
		return "", fmt.Errorf("list %s: %w", f.root, err)
	}

	days := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && dayDir.MatchString(e.Name()) {
			days = append(days, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	for _, day := range days {
		candidate := filepath.Join(f.root, day, f.fileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no %s under %s", domain.ErrInputNotFound, f.fileName, f.root)
}
