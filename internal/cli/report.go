package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// ReportCommand prints the activity report.
type ReportCommand struct {
	Limit int
	JSON  bool
}

func (cmd *ReportCommand) Run(ctx context.Context, reports storage.ReportStore, out io.Writer) error {
	report, err := services.NewReportService(reports).Summary(ctx, cmd.Limit)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintln(out, "Book Exchange Report")
	fmt.Fprintln(out, "====================")
	fmt.Fprintf(out, "Users:     %d\n", report.TotalUsers)
	fmt.Fprintf(out, "Books:     %d\n", report.TotalBooks)
	fmt.Fprintf(out, "Exchanges: %d\n", report.TotalExchanges)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Most exchanged books")
	fmt.Fprintln(tw, "#\tTITLE\tAUTHOR\tOWNER\tEXCHANGES")
	for i, b := range report.MostExchangedBooks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", i+1, b.Title, b.Author, b.OwnerName, b.ExchangeCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Most active users")
	fmt.Fprintln(tw, "#\tUSERNAME\tEXCHANGES")
	for i, u := range report.MostActiveUsers {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, u.Username, u.ExchangeCount)
	}
	return tw.Flush()
}
