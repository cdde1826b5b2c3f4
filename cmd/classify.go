package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [module-path...]",
	Short: "Print the star each module would receive without writing anything",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"inventory_file": "inventory",
			"rules_path":     "rules",
		})
	},
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().String("inventory", "", "explicit inventory file instead of scanning lanes")
	classifyCmd.Flags().String("rules", "", "star rules file")
	classifyCmd.Flags().String("lane", "", "only this lane")
	classifyCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(classifyCmd)
}

// classification is one row of classify output.
type classification struct {
	Module     string  `json:"module"`
	Lane       string  `json:"lane"`
	Path       string  `json:"path"`
	Star       string  `json:"star,omitempty"`
	Confidence float64 `json:"confidence"`
	Rule       string  `json:"rule,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	ctx, cancel := setupSignalContext(s.printer)
	defer cancel()

	var lane inventory.Lane
	if l, _ := cmd.Flags().GetString("lane"); l != "" {
		if lane, err = inventory.ParseLane(l); err != nil {
			return err
		}
	}

	p := s.pipeline()
	rs, err := p.LoadRules()
	if err != nil {
		return err
	}
	modules, err := p.LoadModules(ctx, rs)
	if err != nil {
		return err
	}
	modules = filterModules(modules, lane, args)

	res, err := p.Classify(ctx, rs, modules, nil)
	if err != nil {
		return err
	}
	rows := classificationRows(res)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return printClassifications(cmd.OutOrStdout(), rows)
}

// filterModules keeps modules in lane (when set) whose path starts with one
// of prefixes (when any are given).
func filterModules(modules []inventory.Module, lane inventory.Lane, prefixes []string) []inventory.Module {
	var out []inventory.Module
	for _, m := range modules {
		if lane != "" && m.Lane != lane {
			continue
		}
		if len(prefixes) > 0 && !hasPathPrefix(m.Path, prefixes) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasPathPrefix(p string, prefixes []string) bool {
	for _, pre := range prefixes {
		pre = strings.Trim(pre, "/")
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}

func classificationRows(res *manifest.Result) []classification {
	rows := make([]classification, 0, len(res.Manifests)+len(res.Failures))
	for _, m := range res.Manifests {
		rows = append(rows, classification{
			Module:     m.Module,
			Lane:       string(m.Lane),
			Path:       m.Path,
			Star:       string(m.Star),
			Confidence: m.Confidence,
			Rule:       m.Rule,
			Reason:     string(m.Reason),
		})
	}
	for _, f := range res.Failures {
		rows = append(rows, classification{
			Lane:  string(f.Lane),
			Path:  f.Path,
			Error: f.Err.Error(),
		})
	}
	return rows
}

func printClassifications(w io.Writer, rows []classification) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No modules found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANE\tPATH\tSTAR\tCONFIDENCE\tRULE")
	for _, r := range rows {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\terror: %s\n", r.Lane, r.Path, r.Error)
			continue
		}
		rule := r.Rule
		if rule == "" {
			rule = "(" + r.Reason + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n", r.Lane, r.Path, r.Star, r.Confidence, rule)
	}
	return tw.Flush()
}
