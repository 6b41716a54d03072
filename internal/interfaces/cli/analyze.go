package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpgraph/CorpRisk-Insight/internal/application/scenario"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

type analyzeOptions struct {
	companies      []string
	periods        []string
	topN           int
	timeWindowDays int
	forceRecompute bool
	timeout        time.Duration
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <scenario>",
		Short: "Run one analysis scenario, or all of them",
		Long: "Run a risk analysis scenario against the configured record source.\n" +
			"Scenarios: fraud-rank, circular-trade, collusion, shell-company,\n" +
			"external-risk-rank, perform-risk, all.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.companies, "companies", nil, "restrict to these company numbers")
	f.StringSliceVar(&opts.periods, "periods", nil, "restrict to this period (one date or start,end)")
	f.IntVar(&opts.topN, "top-n", 0, "limit ranked results (0 = configured default)")
	f.IntVar(&opts.timeWindowDays, "time-window-days", 0, "circular-trade window (0 = configured default)")
	f.BoolVar(&opts.forceRecompute, "force-recompute", false, "bypass the weight cache for this run")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "run timeout")

	return cmd
}

func runAnalyze(ctx context.Context, root *rootOptions, opts *analyzeOptions, name string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	log := root.logger()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	svc, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	scope := graphtypes.Scope{CompanyNumbers: opts.companies, Periods: opts.periods}
	runOpts := scenario.Options{ForceRecompute: opts.forceRecompute}
	if opts.topN > 0 {
		runOpts.TopN = &opts.topN
	}
	if opts.timeWindowDays > 0 {
		runOpts.TimeWindowDays = &opts.timeWindowDays
	}

	switch name {
	case "fraud-rank":
		res, err := svc.FraudRank(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printResult(root.output, res, func(w *tabwriter.Writer) {
			printMeta(w, res.Meta)
			fmt.Fprintln(w, "COMPANY\tNAME\tSCORE\tLEVEL")
			for _, c := range res.Companies {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\n", c.CompanyID, c.CompanyName, c.Score, c.Level)
			}
			fmt.Fprintln(w, "\nCONTRACT\tSCORE\tLEVEL\tPARTIES")
			for _, c := range res.Contracts {
				fmt.Fprintf(w, "%s\t%.4f\t%s\t%v\n", c.ContractID, c.Score, c.Level, c.Parties)
			}
		})
	case "external-risk-rank":
		res, err := svc.ExternalRiskRank(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printResult(root.output, res, func(w *tabwriter.Writer) {
			printMeta(w, res.Meta)
			fmt.Fprintln(w, "COMPANY\tNAME\tSCORE\tLEVEL")
			for _, c := range res.Companies {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\n", c.CompanyID, c.CompanyName, c.Score, c.Level)
			}
		})
	case "circular-trade":
		res, err := svc.CircularTrade(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printResult(root.output, res, func(w *tabwriter.Writer) {
			printMeta(w, res.Meta)
			fmt.Fprintln(w, "CENTRAL\tDISPERSED\tSIMILARITY\tRISK")
			for _, p := range res.Patterns {
				fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\n", p.CentralCompany, len(p.DispersedCompanies), p.Similarity, p.RiskScore)
			}
		})
	case "collusion":
		res, err := svc.Collusion(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printResult(root.output, res, func(w *tabwriter.Writer) {
			printMeta(w, res.Meta)
			fmt.Fprintln(w, "NETWORK\tSIZE\tSCORE\tROTATION\tDENSITY")
			for _, c := range res.Clusters {
				fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.4f\n", c.NetworkID, c.Size, c.RiskScore, c.RotationScore, c.NetworkDensity)
			}
		})
	case "shell-company":
		res, err := svc.ShellCompany(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printResult(root.output, res, func(w *tabwriter.Writer) {
			printMeta(w, res.Meta)
			fmt.Fprintln(w, "COMPANY\tNAME\tSCORE\tPASS-THROUGH\tVELOCITY")
			for _, c := range res.Companies {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.1f\n", c.CompanyID, c.CompanyName, c.ShellScore, c.PassThroughRatio, c.VelocityDays)
			}
		})
	case "perform-risk":
		res, err := svc.PerformRisk(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printResult(root.output, res, func(w *tabwriter.Writer) {
			printMeta(w, res.Meta)
			fmt.Fprintln(w, "COMPANY\tNAME\tSCORE\tOVERDUE\tRISK CONTRACTS")
			for _, c := range res.Companies {
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%d\t%d\n", c.CompanyID, c.CompanyName, c.Score, c.OverdueCount, len(c.RiskContracts))
			}
		})
	case "all":
		res, err := svc.RunAll(ctx, scope, runOpts)
		if err != nil {
			return err
		}
		return printJSON(res)
	default:
		return fmt.Errorf("unknown scenario %q (want fraud-rank, circular-trade, collusion, shell-company, external-risk-rank, perform-risk, or all)", name)
	}
}

func printMeta(w *tabwriter.Writer, meta risk.Meta) {
	fmt.Fprintf(w, "run %s\t%d nodes / %d edges\t%d results in %s\n\n",
		meta.RunID, meta.NodeCount, meta.EdgeCount, meta.ResultCount, meta.Duration)
}

func printResult(format string, res interface{}, table func(w *tabwriter.Writer)) error {
	if format == "json" {
		return printJSON(res)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
