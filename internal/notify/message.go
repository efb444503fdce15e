package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/optionschain/internal/aggregate"
	"github.com/dgnsrekt/optionschain/internal/expiry"
)

// Outcome is what one fetch run produced. Report and Earliest may be nil
// when the run stopped before reaching them.
type Outcome struct {
	Exchange string
	Ticker   string
	Report   *aggregate.Report
	Earliest *expiry.Result
	Duration time.Duration
}

// FormatSuccessMessage creates a success notification body.
func FormatSuccessMessage(o Outcome) string {
	var sb strings.Builder

	writeSources(&sb, o.Report)
	if o.Report != nil && o.Report.Path != "" {
		sb.WriteString(fmt.Sprintf("Snapshot: %s\n", o.Report.Path))
	}
	if e := o.Earliest; e != nil {
		if e.Expiration != "" {
			sb.WriteString(fmt.Sprintf("Earliest: %s (%d contracts)\n", e.Expiration, len(e.Contracts)))
		} else {
			sb.WriteString("Earliest: none\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Duration: %s", o.Duration.Round(time.Second)))

	return sb.String()
}

// FormatFailureMessage creates a failure notification body.
func FormatFailureMessage(o Outcome, err error) string {
	var sb strings.Builder

	writeSources(&sb, o.Report)
	sb.WriteString(fmt.Sprintf("Duration: %s", o.Duration.Round(time.Second)))

	if err != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", err))
	}

	return sb.String()
}

func writeSources(sb *strings.Builder, report *aggregate.Report) {
	if report == nil {
		return
	}
	for _, s := range report.Sources {
		if s.Err != nil {
			sb.WriteString(fmt.Sprintf("%s: failed\n", s.Source))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %d contracts, %d skipped", s.Source, s.Contracts, s.Skipped))
		if n := len(s.FailedExpirations); n > 0 {
			sb.WriteString(fmt.Sprintf(", %d expirations failed", n))
		}
		sb.WriteString("\n")
	}
}
