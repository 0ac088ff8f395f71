package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ramstk/internal/analysis"
	"ramstk/internal/milhdbk217f"
	"ramstk/internal/worksheet"
	"ramstk/pkg/domain"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ramstk",
		Short:         "FMEA and physics-of-failure analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	pf.IntVar(&a.revision, "revision", 1, "revision id")
	pf.IntVar(&a.hardware, "hardware", 1, "hardware id")
	pf.StringVar(&a.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		importCommand(a),
		treeCommand(a),
		rpnCommand(a),
		criticalityCommand(a),
		relayCommand(a),
		exportCommand(a),
		deleteCommand(a),
	)
	return root
}

// hierarchyFlags registers --hierarchy and --mode on cmd.
func hierarchyFlags(cmd *cobra.Command, hierarchy *string, mode *int) {
	cmd.Flags().StringVar(hierarchy, "hierarchy", "fmea", "fmea or pof")
	cmd.Flags().IntVar(mode, "mode", 0, "failure mode id (pof only)")
}

func parseHierarchy(raw string) (domain.Hierarchy, error) {
	h, err := domain.ParseHierarchy(raw)
	if err != nil {
		return 0, usageError{err}
	}
	return h, nil
}

func importCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <worksheet.yaml>",
		Short: "Insert a nested worksheet into storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := worksheet.ParseFile(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := worksheet.Importer{Target: svc, Logger: a.logger}.Import(cmd.Context(), ws)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "imported %d records into %s (%d rule violations)\n",
				sum.Total(), ws.Scope(), sum.Violations)
			return err
		},
	}
}

func treeCommand(a *app) *cobra.Command {
	var hierarchy, output string
	var mode int
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the FMEA or PoF tree of one hardware item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := parseHierarchy(hierarchy)
			if err != nil {
				return err
			}
			m, err := a.manager(cmd.Context(), h, mode)
			if err != nil {
				return err
			}
			switch output {
			case "text":
				return printTree(a, m.Tree())
			case "json", "yaml":
				doc, err := worksheet.NewDocument(m)
				if err != nil {
					return err
				}
				return worksheet.Encode(a.stdout, doc, worksheet.Format(output))
			default:
				return usageError{fmt.Errorf("unknown output %q", output)}
			}
		},
	}
	hierarchyFlags(cmd, &hierarchy, &mode)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "text, json or yaml")
	return cmd
}

func printTree(a *app, tree *analysis.Tree) error {
	return tree.Walk(func(n analysis.Node) error {
		attrs, err := domain.Attributes(n.Record)
		if err != nil {
			return err
		}
		label, _ := attrs["description"].(string)
		if label == "" {
			label, _ = attrs["action_recommended"].(string)
		}
		indent := strings.Repeat("  ", len(n.Path)-1)
		_, err = fmt.Fprintf(a.stdout, "%s%s\t%s\t%s\n", indent, n.ID(), n.Path.Level(), label)
		return err
	})
}

func rpnCommand(a *app) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "rpn",
		Short: "Calculate and store RPN and RPN-new for every mechanism or cause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if method == "" {
				method = a.settings.Analysis.RPNMethod
			}
			rm, err := analysis.ParseRPNMethod(method)
			if err != nil {
				return usageError{err}
			}
			m, err := a.manager(cmd.Context(), domain.HierarchyFMEA, 0)
			if err != nil {
				return err
			}
			if err := m.CalculateRPN(cmd.Context(), rm); err != nil {
				return err
			}
			if err := m.UpdateAll(cmd.Context()); err != nil {
				return err
			}
			return m.Tree().Walk(func(n analysis.Node) error {
				var rpn, rpnNew int
				switch rec := n.Record.(type) {
				case *domain.Mechanism:
					rpn, rpnNew = rec.RPN, rec.RPNNew
				case *domain.Cause:
					rpn, rpnNew = rec.RPN, rec.RPNNew
				}
				if n.Path.Level() != rm.Level() {
					return nil
				}
				_, err := fmt.Fprintf(a.stdout, "%s\trpn=%d\trpn_new=%d\n", n.ID(), rpn, rpnNew)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "mechanism or cause (default from config)")
	return cmd
}

func criticalityCommand(a *app) *cobra.Command {
	var itemHR float64
	var relayFile string
	cmd := &cobra.Command{
		Use:   "criticality",
		Short: "Calculate mode hazard rates and criticality by severity class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if relayFile != "" {
				hr, err := relayHazardRate(relayFile)
				if err != nil {
					return err
				}
				itemHR = hr
			}
			m, err := a.manager(cmd.Context(), domain.HierarchyFMEA, 0)
			if err != nil {
				return err
			}
			crit, err := m.CalculateCriticality(cmd.Context(), itemHR)
			if err != nil {
				return err
			}
			if err := m.UpdateAll(cmd.Context()); err != nil {
				return err
			}
			classes := make([]string, 0, len(crit))
			for c := range crit {
				classes = append(classes, c)
			}
			sort.Strings(classes)
			if _, err := fmt.Fprintf(a.stdout, "item_hazard_rate\t%g\n", itemHR); err != nil {
				return err
			}
			for _, c := range classes {
				if _, err := fmt.Fprintf(a.stdout, "%s\t%g\n", c, crit[c]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&itemHR, "item-hr", 0, "item hazard rate in failures per hour")
	cmd.Flags().StringVar(&relayFile, "relay", "", "derive the item hazard rate from a relay input file")
	return cmd
}

func relayHazardRate(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	in, err := milhdbk217f.ParseInput(f)
	if err != nil {
		return 0, err
	}
	hr, _, err := in.ItemHazardRate()
	return hr, err
}

func relayCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relay <input.yaml>",
		Short: "Predict a relay hazard rate with MIL-HDBK-217F",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in, err := milhdbk217f.ParseInput(f)
			if err != nil {
				return err
			}
			hr, res, err := in.ItemHazardRate()
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				a.logger.Warn("relay factor", "warning", w)
			}
			out := struct {
				milhdbk217f.Result `yaml:",inline"`
				Quantity           int     `yaml:"quantity"`
				ItemHazardRate     float64 `yaml:"item_hazard_rate"`
				Overstress         string  `yaml:"overstress,omitempty"`
			}{Result: res, Quantity: in.Quantity, ItemHazardRate: hr}
			if ps := in.PartStress; ps != nil {
				if over, why := milhdbk217f.Overstressed(ps.Environment, ps.CurrentOperating, ps.CurrentRated); over {
					out.Overstress = why
				}
			}
			enc := yaml.NewEncoder(a.stdout)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func exportCommand(a *app) *cobra.Command {
	var hierarchy, format string
	var mode int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Archive a tree to the configured blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := parseHierarchy(hierarchy)
			if err != nil {
				return err
			}
			f, err := worksheet.ParseFormat(format)
			if err != nil {
				return usageError{err}
			}
			m, err := a.manager(cmd.Context(), h, mode)
			if err != nil {
				return err
			}
			st, err := a.blobStore(cmd.Context())
			if err != nil {
				return err
			}
			info, err := worksheet.Export(cmd.Context(), st, m, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "exported %s (%d bytes, %s)\n", info.Key, info.Size, st.Driver())
			return err
		},
	}
	hierarchyFlags(cmd, &hierarchy, &mode)
	cmd.Flags().StringVar(&format, "format", "json", "json or yaml")
	return cmd
}

func deleteCommand(a *app) *cobra.Command {
	var hierarchy string
	var mode int
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node and its subtree, e.g. 6.3 or 3.1.1s",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHierarchy(hierarchy)
			if err != nil {
				return err
			}
			p, err := analysis.ParsePath(h, args[0])
			if err != nil {
				return usageError{err}
			}
			m, err := a.manager(cmd.Context(), h, mode)
			if err != nil {
				return err
			}
			if err := m.Delete(cmd.Context(), p); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "deleted %s\n", p)
			return err
		},
	}
	hierarchyFlags(cmd, &hierarchy, &mode)
	return cmd
}
