package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/controller"
	"github.com/oshokin/zensor/internal/repository/history"
)

// errHistoryDisabled is returned when no history file is configured.
var errHistoryDisabled = errors.New("history_file is not set")

// History prints the recorded iterations, oldest first. A positive limit
// keeps only the most recent records.
func History(ctx context.Context, configPath string, limit int, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if cfg.HistoryFile == "" {
		return errHistoryDisabled
	}

	records, err := history.NewHistory(cfg.HistoryFile).Load(ctx)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("%s: %w", cfg.HistoryFile, err)
		}

		return fmt.Errorf("load history: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "UPTIME\tSTATE\tTEMPERATURE\tHUMIDITY\tBUZZED\tFINGERPRINT")

	for _, it := range records {
		state := controller.Cold
		if it.Hot {
			state = controller.Hot
		}

		// Failed reads record only whether the red LED stayed on.
		if it.Sample == nil {
			standing := "-"
			if it.Hot {
				standing = state.String()
			}

			_, _ = fmt.Fprintf(w, "%d ms\t%s\tread failed\t-\t-\t%s\n",
				it.Elapsed.Milliseconds(), standing, it.Fingerprint)

			continue
		}

		_, _ = fmt.Fprintf(w, "%d ms\t%s\t%d Celsius\t%d%%\t%t\t%s\n",
			it.Elapsed.Milliseconds(), state, it.Sample.Temperature, it.Sample.Humidity, it.Buzzed, it.Fingerprint)
	}

	return w.Flush()
}
