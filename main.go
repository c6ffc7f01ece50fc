// varasat is a command-line SAT solver over DIMACS CNF files.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/varasat/varasat/dpll"
	"github.com/varasat/varasat/solver"
	"github.com/varasat/varasat/sudoku"
	"github.com/varasat/varasat/walksat"
)

var (
	flagEngine    string
	flagHeuristic string
	flagTimeout   time.Duration
	flagVerbose   bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "varasat [file.cnf]",
		Short: "Decide the satisfiability of a CNF formula",
		Long: "varasat reads a formula in the DIMACS CNF format from the given file,\n" +
			"or from standard input, and prints its satisfiability verdict along\n" +
			"with a model when one exists.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          solveCNF,
	}
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log search progress")
	cmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "give up after that much time (0 means no limit)")
	cmd.Flags().StringVar(&flagEngine, "engine", "cdcl", "solving engine: cdcl, dpll or walksat")
	cmd.Flags().StringVar(&flagHeuristic, "heuristic", "first-free",
		"dpll branching heuristic: first-free, dlis, mom, jw or vsids")
	cmd.AddCommand(sudokuCmd())
	return cmd
}

func logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// openInput opens the file named by args, or returns stdin when no file was
// given or the name is "-".
func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "cannot open input")
	}
	return f, nil
}

func solveContext() (context.Context, context.CancelFunc) {
	if flagTimeout > 0 {
		return context.WithTimeout(context.Background(), flagTimeout)
	}
	return context.Background(), func() {}
}

func solveCNF(cmd *cobra.Command, args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()
	pb, err := solver.ParseCNF(in)
	if err != nil {
		return errors.Wrap(err, "cannot parse formula")
	}
	ctx, cancel := solveContext()
	defer cancel()
	log := logger()
	switch flagEngine {
	case "cdcl":
		return solveCDCL(ctx, cmd, log, pb)
	case "dpll":
		return solveDPLL(ctx, cmd, log, pb)
	case "walksat":
		return solveWalkSAT(ctx, cmd, log, pb)
	default:
		return errors.Errorf("unknown engine %q", flagEngine)
	}
}

func solveCDCL(ctx context.Context, cmd *cobra.Command, log *logrus.Logger, pb *solver.Problem) error {
	s := solver.New(pb)
	if flagVerbose {
		s.Logger = log
	}
	s.SolveContext(ctx)
	if flagVerbose {
		log.WithFields(logrus.Fields{
			"restarts":  s.Stats.NbRestarts,
			"conflicts": s.Stats.NbConflicts,
			"decisions": s.Stats.NbDecisions,
			"unitProps": s.Stats.NbUnitProps,
			"learned":   s.Stats.NbLearned,
			"deleted":   s.Stats.NbDeleted,
		}).Info("search finished")
	}
	s.OutputModel(cmd.OutOrStdout())
	return nil
}

// toSlices rebuilds a plain [][]int view of the parsed problem, for the
// engines working on raw clauses.
func toSlices(pb *solver.Problem) [][]int {
	cnf := make([][]int, 0, len(pb.Clauses)+len(pb.Units))
	for _, unit := range pb.Units {
		cnf = append(cnf, []int{unit.Int()})
	}
	for _, c := range pb.Clauses {
		clause := make([]int, c.Len())
		for i := range clause {
			clause[i] = c.Get(i).Int()
		}
		cnf = append(cnf, clause)
	}
	return cnf
}

func dpllStrategy(name string) (dpll.Strategy, error) {
	switch name {
	case "first-free":
		return dpll.FirstFree{}, nil
	case "dlis":
		return dpll.DLIS{}, nil
	case "mom":
		return dpll.MOM{}, nil
	case "jw":
		return dpll.JW{}, nil
	case "vsids":
		return &dpll.VSIDS{}, nil
	default:
		return nil, errors.Errorf("unknown heuristic %q", name)
	}
}

func solveDPLL(ctx context.Context, cmd *cobra.Command, log *logrus.Logger, pb *solver.Problem) error {
	strat, err := dpllStrategy(flagHeuristic)
	if err != nil {
		return err
	}
	s := dpll.New(toSlices(pb))
	s.Strategy = strat
	if flagVerbose {
		s.Logger = log
	}
	status := s.SolveContext(ctx)
	if flagVerbose {
		log.WithFields(logrus.Fields{
			"decisions":  s.Stats.NbDecisions,
			"backtracks": s.Stats.NbBacktracks,
			"unitProps":  s.Stats.NbUnitProps,
			"pures":      s.Stats.NbPureEliminations,
		}).Info("search finished")
	}
	printResult(cmd.OutOrStdout(), status, modelOrNil(status, s.Model, pb.NbVars))
	return nil
}

func solveWalkSAT(ctx context.Context, cmd *cobra.Command, log *logrus.Logger, pb *solver.Problem) error {
	s := walksat.New(toSlices(pb))
	status := s.SolveContext(ctx)
	if flagVerbose {
		log.WithFields(logrus.Fields{
			"flips": s.Stats.NbFlips,
			"tries": s.Stats.NbTries,
		}).Info("search finished")
	}
	printResult(cmd.OutOrStdout(), status, modelOrNil(status, s.Model, pb.NbVars))
	return nil
}

// modelOrNil returns the model padded to nbVars when the status is Sat,
// and nil otherwise. Variables the engine never saw default to true.
func modelOrNil(status solver.Status, model func() []bool, nbVars int) []bool {
	if status != solver.Sat {
		return nil
	}
	got := model()
	if len(got) >= nbVars {
		return got
	}
	padded := make([]bool, nbVars)
	copy(padded, got)
	for i := len(got); i < nbVars; i++ {
		padded[i] = true
	}
	return padded
}

func printResult(w io.Writer, status solver.Status, model []bool) {
	switch status {
	case solver.Sat:
		fmt.Fprintf(w, "s SATISFIABLE\nv ")
		for i, val := range model {
			if val {
				fmt.Fprintf(w, "%d ", i+1)
			} else {
				fmt.Fprintf(w, "%d ", -i-1)
			}
		}
		fmt.Fprintf(w, "0\n")
	case solver.Unsat:
		fmt.Fprintf(w, "s UNSATISFIABLE\n")
	default:
		fmt.Fprintf(w, "s INDETERMINATE\n")
	}
}

func sudokuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sudoku [file]",
		Short: "Solve a Sudoku grid",
		Long: "sudoku reads a grid from the given file or from standard input and\n" +
			"prints a completion. Cells are separated by spaces, one row per line;\n" +
			"0 or . denotes an empty cell.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args)
			if err != nil {
				return err
			}
			defer in.Close()
			grid, err := parseGrid(in)
			if err != nil {
				return err
			}
			ctx, cancel := solveContext()
			defer cancel()
			solved, err := grid.SolveContext(ctx)
			if err != nil {
				return err
			}
			writeGrid(cmd.OutOrStdout(), solved)
			return nil
		},
	}
}

func parseGrid(r io.Reader) (sudoku.Grid, error) {
	var grid sudoku.Grid
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row []int
		for _, field := range strings.Fields(line) {
			if field == "." {
				row = append(row, 0)
				continue
			}
			val, err := strconv.Atoi(field)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid cell %q", field)
			}
			row = append(row, val)
		}
		grid = append(grid, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read grid")
	}
	return grid, nil
}

func writeGrid(w io.Writer, grid sudoku.Grid) {
	for _, row := range grid {
		for c, val := range row {
			if c > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, val)
		}
		fmt.Fprintln(w)
	}
}
