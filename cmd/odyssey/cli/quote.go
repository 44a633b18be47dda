package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/odyssey-erp/odyssey-backoffice/internal/billing"
	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

// Exit codes returned by QuoteCommand.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitInvalid    = 2
	ExitViolations = 10
)

// Quoter computes a quote for a bill form.
type Quoter interface {
	Quote(ctx context.Context, req billing.QuoteRequest) (*billing.Quote, error)
}

// QuoteOptions defines available flags for the quote command.
type QuoteOptions struct {
	Input      io.Reader
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// QuoteCommand reads a bill form as JSON, computes its totals and prints
// them. Bills with violations exit with ExitViolations.
func QuoteCommand(ctx context.Context, quoter Quoter, opts QuoteOptions) int {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	var req billing.QuoteRequest
	dec := json.NewDecoder(opts.Input)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "quote: decode bill: %v\n", err)
		return ExitInvalid
	}

	quote, err := quoter.Quote(ctx, req)
	if err != nil {
		var verrs pricing.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				_, _ = fmt.Fprintf(opts.Stderr, "quote: %s %s\n", e.Field, e.Message)
			}
			return ExitInvalid
		}
		_, _ = fmt.Fprintf(opts.Stderr, "quote: %v\n", err)
		return ExitFailure
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(quote); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "quote: encode json: %v\n", err)
			return ExitFailure
		}
	} else {
		renderQuoteHuman(opts.Stdout, req, quote)
	}
	if !quote.Submittable {
		return ExitViolations
	}
	return ExitOK
}

func renderQuoteHuman(w io.Writer, req billing.QuoteRequest, q *billing.Quote) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tITEM\tQTY\tSUBTOTAL\tDISCOUNT\tTAX %%\tTAX\tTOTAL\n")
	for i, line := range q.Lines {
		name, qty := "", int64(0)
		if i < len(req.Items) {
			name, qty = req.Items[i].Name, req.Items[i].Quantity
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, name, qty, line.Subtotal, line.DiscountAmount, line.TaxRatePercent, line.TaxAmount, line.LineTotal)
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintf(w, "\nSub total:         %s\n", q.Totals.SubTotal)
	_, _ = fmt.Fprintf(w, "Overall discount:  %s\n", q.Totals.OverallDiscountAmount)
	_, _ = fmt.Fprintf(w, "Overall tax (%s%%): %s\n", q.Totals.OverallTaxPercent, q.Totals.OverallTaxAmount)
	_, _ = fmt.Fprintf(w, "Grand total:       %s\n", q.FormattedGrandTotal)
	if len(q.Violations) == 0 {
		_, _ = fmt.Fprintln(w, "Status: ready to submit")
		return
	}
	_, _ = fmt.Fprintf(w, "Status: %d violation(s)\n", len(q.Violations))
	for _, v := range q.Violations {
		_, _ = fmt.Fprintf(w, "  - %s [%s]: %s\n", v.Field, v.Code, v.Message)
	}
}
