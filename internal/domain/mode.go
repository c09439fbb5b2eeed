package domain

import "fmt"

// Mode selects the side effects of a run.
type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModeReview Mode = "review"
	ModeSend   Mode = "send"
)

// ParseMode maps the CLI flags to a mode; no flag means dry-run.
func ParseMode(send, review bool) (Mode, error) {
	switch {
	case send && review:
		return "", fmt.Errorf("--send and --review are mutually exclusive")
	case send:
		return ModeSend, nil
	case review:
		return ModeReview, nil
	default:
		return ModeDryRun, nil
	}
}

// Generates reports whether the mode builds a new queue.
func (m Mode) Generates() bool {
	return m == ModeDryRun || m == ModeSend
}
