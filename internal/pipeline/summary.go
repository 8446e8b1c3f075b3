package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

// Outcome is the result for one pending document. Index is its position in
// the pending list so reports can be re-sorted after completion-order collection.
type Outcome struct {
	Index    int                      `json:"index"`
	Document ingest.DocumentRef       `json:"document"`
	Status   constants.DocumentStatus `json:"status"`
	Record   *invoice.Record          `json:"record,omitempty"`
	Meta     *extract.AttemptMeta     `json:"meta,omitempty"`
	Appended bool                     `json:"appended"`
	Err      error                    `json:"-"`
	Error    string                   `json:"error,omitempty"`
}

func (o *Outcome) fail(err error) {
	o.Status = constants.DocumentStatusFailed
	o.Err = err
	o.Error = err.Error()
}

// Summary reports one batch run.
type Summary struct {
	Folder     string          `json:"folder"`
	Listed     int             `json:"listed"`
	Skipped    int             `json:"skipped"`
	Processed  int             `json:"processed"`
	Failed     int             `json:"failed"`
	Appended   int             `json:"appended"`
	TotalValue decimal.Decimal `json:"total_value"`
	Outcomes   []Outcome       `json:"outcomes"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// add folds one outcome into the counters. Processed counts extractions,
// Appended counts rows written; an append failure counts as both Processed and Failed.
func (s *Summary) add(o Outcome) {
	if o.Record != nil {
		s.Processed++
	}
	if o.Status == constants.DocumentStatusFailed {
		s.Failed++
	}
	if o.Appended {
		s.Appended++
		if v, ok := ParseAmount(o.Record.TotalValue); ok {
			s.TotalValue = s.TotalValue.Add(v)
		}
	}
	s.Outcomes = append(s.Outcomes, o)
}

func (s *Summary) sortOutcomes() {
	sort.Slice(s.Outcomes, func(i, j int) bool { return s.Outcomes[i].Index < s.Outcomes[j].Index })
}

var amountSpaces = strings.NewReplacer(" ", "", "\u00a0", "", "'", "")

// ParseAmount reads a total value written with either '.' or ',' as the
// decimal separator. When both appear the last one is the decimal separator
// and the other is grouping; a separator repeated on its own is grouping too.
// Values that still do not parse are left out of totals.
func ParseAmount(v string) (decimal.Decimal, bool) {
	s := amountSpaces.Replace(strings.TrimSpace(v))
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
