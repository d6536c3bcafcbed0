package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/projplan/internal/app/analyze"
	"github.com/slok/projplan/internal/app/baselinecompare"
	"github.com/slok/projplan/internal/model"
)

// JSONPrinter prints project plan information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// taskOutput represents a task of the schedule output.
type taskOutput struct {
	Name              string   `json:"name"`
	Parent            string   `json:"parent,omitempty"`
	Depth             int      `json:"depth"`
	StartDate         string   `json:"start_date,omitempty"`
	EndDate           string   `json:"end_date,omitempty"`
	DurationDays      *int     `json:"duration_days"`
	Dependencies      []string `json:"dependencies"`
	PercentComplete   int      `json:"percent_complete"`
	Status            string   `json:"status"`
	ActualStartDate   string   `json:"actual_start_date,omitempty"`
	ActualFinishDate  string   `json:"actual_finish_date,omitempty"`
	BaselineStartDate string   `json:"baseline_start_date,omitempty"`
	BaselineEndDate   string   `json:"baseline_end_date,omitempty"`
	EarliestStart     string   `json:"earliest_start"`
	EarliestFinish    string   `json:"earliest_finish"`
	LatestStart       string   `json:"latest_start"`
	LatestFinish      string   `json:"latest_finish"`
	Float             int      `json:"float"`
	Critical          bool     `json:"critical"`
	Conflicting       bool     `json:"conflicting"`
	Holidays          []string `json:"holidays,omitempty"`
	StartsOnHoliday   bool     `json:"starts_on_holiday,omitempty"`
}

// scheduleOutput represents the full schedule report output.
type scheduleOutput struct {
	Tasks            []taskOutput     `json:"tasks"`
	ProjectFinish    string           `json:"project_finish,omitempty"`
	OverallProgress  int              `json:"overall_progress"`
	CriticalProgress int              `json:"critical_progress"`
	Conflicts        []conflictOutput `json:"conflicts"`
	CycleEdges       []edgeOutput     `json:"cycle_edges"`
}

type conflictOutput struct {
	Task        string `json:"task"`
	Predecessor string `json:"predecessor"`
}

type edgeOutput struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// varianceOutput represents a task slip against a baseline.
type varianceOutput struct {
	Task          string `json:"task"`
	HasBaseline   bool   `json:"has_baseline"`
	BaselineStart string `json:"baseline_start,omitempty"`
	BaselineEnd   string `json:"baseline_end,omitempty"`
	CurrentStart  string `json:"current_start,omitempty"`
	CurrentEnd    string `json:"current_end,omitempty"`
	StartSlip     *int   `json:"start_slip"`
	EndSlip       *int   `json:"end_slip"`
}

type baselineCompareOutput struct {
	Name      string           `json:"name"`
	Found     bool             `json:"found"`
	Variances []varianceOutput `json:"variances"`
}

type baselineListItem struct {
	Name string `json:"name"`
}

// lockStatusOutput represents the lock status output.
type lockStatusOutput struct {
	State      string     `json:"state"`
	Owner      string     `json:"owner,omitempty"`
	PID        int        `json:"pid,omitempty"`
	Session    string     `json:"session,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	AgeSeconds int        `json:"age_seconds"`
	ReadOnly   bool       `json:"read_only"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintSchedule prints the schedule report in JSON format.
func (j *JSONPrinter) PrintSchedule(report analyze.Report) error {
	output := scheduleOutput{
		Tasks:            make([]taskOutput, 0, len(report.Rows)),
		OverallProgress:  report.OverallProgress,
		CriticalProgress: report.CriticalProgress,
		Conflicts:        make([]conflictOutput, 0, len(report.Conflicts)),
		CycleEdges:       make([]edgeOutput, 0, len(report.CycleEdges)),
	}

	if !report.ProjectFinish.IsZero() {
		output.ProjectFinish = report.ProjectFinish.Format(model.DateFormat)
	}

	for _, r := range report.Rows {
		t := r.Task
		deps := make([]string, 0, len(t.Dependencies))
		for _, d := range t.Dependencies {
			deps = append(deps, string(d))
		}

		var holidays []string
		for _, h := range r.Holidays {
			holidays = append(holidays, h.Format(model.DateFormat))
		}

		output.Tasks = append(output.Tasks, taskOutput{
			Name:              string(t.Name),
			Parent:            string(t.Parent),
			Depth:             r.Depth,
			StartDate:         model.FormatDate(t.EffectiveStart()),
			EndDate:           model.FormatDate(t.EffectiveEnd()),
			DurationDays:      t.DurationDays,
			Dependencies:      deps,
			PercentComplete:   t.PercentComplete,
			Status:            string(t.Status),
			ActualStartDate:   model.FormatDate(t.ActualStartDate),
			ActualFinishDate:  model.FormatDate(t.ActualFinishDate),
			BaselineStartDate: model.FormatDate(t.BaselineStartDate),
			BaselineEndDate:   model.FormatDate(t.BaselineEndDate),
			EarliestStart:     r.EarliestStart.Format(model.DateFormat),
			EarliestFinish:    r.EarliestFinish.Format(model.DateFormat),
			LatestStart:       r.LatestStart.Format(model.DateFormat),
			LatestFinish:      r.LatestFinish.Format(model.DateFormat),
			Float:             r.Float,
			Critical:          r.Critical,
			Conflicting:       r.Conflicting,
			Holidays:          holidays,
			StartsOnHoliday:   r.StartsOnHoliday,
		})
	}

	for _, c := range report.Conflicts {
		output.Conflicts = append(output.Conflicts, conflictOutput{Task: string(c.Task), Predecessor: string(c.Predecessor)})
	}

	for _, e := range report.CycleEdges {
		output.CycleEdges = append(output.CycleEdges, edgeOutput{From: string(e.From), To: string(e.To)})
	}

	return j.encode(output)
}

// PrintBaselineCompare prints the baseline comparison in JSON format.
func (j *JSONPrinter) PrintBaselineCompare(result baselinecompare.Result) error {
	output := baselineCompareOutput{
		Name:      result.Name,
		Found:     result.Found,
		Variances: make([]varianceOutput, 0, len(result.Variances)),
	}

	for _, v := range result.Variances {
		output.Variances = append(output.Variances, varianceOutput{
			Task:          string(v.Task),
			HasBaseline:   v.HasBaseline,
			BaselineStart: model.FormatDate(v.Baseline.Start),
			BaselineEnd:   model.FormatDate(v.Baseline.End),
			CurrentStart:  model.FormatDate(v.Current.Start),
			CurrentEnd:    model.FormatDate(v.Current.End),
			StartSlip:     v.StartSlip,
			EndSlip:       v.EndSlip,
		})
	}

	return j.encode(output)
}

// PrintBaselineList prints the baseline names in JSON format.
func (j *JSONPrinter) PrintBaselineList(names []string) error {
	items := make([]baselineListItem, len(names))
	for i, n := range names {
		items[i] = baselineListItem{Name: n}
	}

	return j.encode(items)
}

// PrintLockStatus prints the lock status in JSON format.
func (j *JSONPrinter) PrintLockStatus(status model.LockStatus) error {
	output := lockStatusOutput{
		State:      string(status.State),
		AgeSeconds: int(status.Age.Seconds()),
		ReadOnly:   status.ReadOnly,
	}

	if r := status.Record; r != nil {
		when := r.When
		output.Owner = r.Owner
		output.PID = r.PID
		output.Session = r.Session
		output.Since = &when
	}

	return j.encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}
