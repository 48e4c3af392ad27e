package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/vmihailenco/msgpack/v5"
)

// Write encodes dataset to w in the given format.
func Write(w io.Writer, dataset *optimization.FrontierDataset, format Format, opts Options) error {
	report := BuildReport(dataset, opts)

	switch format {
	case FormatTable:
		return writeTable(w, report)
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return writeCSV(w, report)
	case FormatMsgpack:
		return writeMsgpack(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeMsgpack(w io.Writer, report Report) error {
	if err := msgpack.NewEncoder(w).Encode(report); err != nil {
		return fmt.Errorf("encode msgpack: %w", err)
	}
	return nil
}

// writeCSV writes one row per frontier point with one weight column per
// asset, in asset order.
func writeCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)

	header := []string{"index", "target_return", "return", "risk", "sharpe", "var_95", "cvar_95", "optimal"}
	header = append(header, report.Assets...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range report.Points {
		row := []string{
			strconv.Itoa(p.Index),
			formatFloat(p.TargetReturn),
			formatFloat(p.Return),
			formatFloat(p.Risk),
			formatSharpe(p.Sharpe),
			formatFloat(p.VaR95),
			formatFloat(p.CVaR95),
			strconv.FormatBool(p.Optimal),
		}
		for _, entry := range p.Weights {
			row = append(row, formatFloat(entry.Weight))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, report Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	unit := ""
	if report.Units == "percent" {
		unit = "%"
	}

	fmt.Fprintf(tw, "Efficient frontier (%d of %d targets, risk-free rate %s%s)\n\n",
		report.Retained, report.Requested, formatFixed(report.RiskFreeRate), unit)

	fmt.Fprint(tw, "#\tReturn\tRisk\tSharpe\tCVaR95")
	for _, asset := range report.Assets {
		fmt.Fprintf(tw, "\t%s", asset)
	}
	fmt.Fprintln(tw)

	for _, p := range report.Points {
		marker := ""
		if p.Optimal {
			marker = "*"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t%s",
			p.Index, marker, formatFixed(p.Return), formatFixed(p.Risk), formatSharpeFixed(p.Sharpe), formatFixed(p.CVaR95))
		for _, entry := range p.Weights {
			fmt.Fprintf(tw, "\t%s", formatFixed(entry.Weight))
		}
		fmt.Fprintln(tw)
	}

	if report.Optimal != nil {
		fmt.Fprintf(tw, "\nOptimal (max Sharpe): #%d return %s%s risk %s%s sharpe %s\n",
			report.Optimal.Index,
			formatFixed(report.Optimal.Return), unit,
			formatFixed(report.Optimal.Risk), unit,
			formatSharpeFixed(report.Optimal.Sharpe))
	} else {
		fmt.Fprintln(tw, "\nOptimal (max Sharpe): none, no point has positive risk")
	}

	if report.MinRisk != nil {
		fmt.Fprintf(tw, "Minimum risk: #%d return %s%s risk %s%s sharpe %s\n",
			report.MinRisk.Index,
			formatFixed(report.MinRisk.Return), unit,
			formatFixed(report.MinRisk.Risk), unit,
			formatSharpeFixed(report.MinRisk.Sharpe))
	}

	if report.Current != nil {
		fmt.Fprintf(tw, "Current portfolio: return %s%s risk %s%s sharpe %s\n",
			formatFixed(report.Current.Return), unit,
			formatFixed(report.Current.Risk), unit,
			formatSharpeFixed(report.Current.Sharpe))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatSharpe(s *float64) string {
	if s == nil {
		return ""
	}
	return formatFloat(*s)
}

func formatSharpeFixed(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return formatFixed(*s)
}
