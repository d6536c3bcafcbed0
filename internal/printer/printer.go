package printer

import (
	"github.com/slok/projplan/internal/app/analyze"
	"github.com/slok/projplan/internal/app/baselinecompare"
	"github.com/slok/projplan/internal/model"
)

// Printer knows how to print project plan information in different formats.
type Printer interface {
	PrintSchedule(report analyze.Report) error
	PrintBaselineCompare(result baselinecompare.Result) error
	PrintBaselineList(names []string) error
	PrintLockStatus(status model.LockStatus) error
	PrintMessage(msg string) error
}
