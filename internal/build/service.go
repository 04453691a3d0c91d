package build

import (
	"time"

	"git.home.luguber.info/inful/langdocs/internal/manifest"
)

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates the build completed, possibly with warnings.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusFailed indicates the build encountered a fatal error.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }

// Trigger records what started a build.
type Trigger string

const (
	TriggerBuild    Trigger = "build"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
)

// Report contains the outcome of a build or rebuild.
type Report struct {
	BuildID string
	Trigger Trigger
	Status  BuildStatus

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Languages lists the languages built, sorted.
	Languages []string

	// Resources maps each language onto the matrix paths it provides.
	Resources map[string][]string

	// Artifacts is the number of files written or confirmed unchanged.
	Artifacts int

	// Changed lists artifacts created or updated, sorted.
	Changed []string

	// Removed lists artifacts deleted as stale, sorted.
	Removed []string

	// Warnings are the non-fatal problems encountered, in discovery order.
	Warnings []error

	// Diff compares this build's manifest with the previous one.
	Diff manifest.Diff
}

func (r *Report) finish(status BuildStatus) {
	r.Status = status
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}
