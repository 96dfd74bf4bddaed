package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stream-select/dmgt-sim/sim"
	"github.com/stream-select/dmgt-sim/sim/experiment"
)

var (
	domainEpsilon float64
	domainFloor   float64
	domainLength  int
)

// domainCmd prints the SIEVE guess domain for a stream length, so a
// configuration can be checked before running an experiment.
var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Print the SIEVE guess domain for a stream length",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := sim.NewGuessDomain(domainEpsilon, domainFloor, domainLength)
		if err != nil {
			return err
		}
		logrus.Debugf("Guess domain: exponents %d..%d", d.MinExp, d.MaxExp)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-21s: %d\n", "Guesses", d.Len())
		for j := d.MinExp; j <= d.MaxExp; j++ {
			fmt.Fprintf(out, "%6d  %.6g\n", j, d.Value(j))
		}
		return nil
	},
}

func init() {
	def := experiment.DefaultConfig()
	domainCmd.Flags().Float64Var(&domainEpsilon, "epsilon", def.Epsilon, "Guess spacing")
	domainCmd.Flags().Float64Var(&domainFloor, "guess-floor", def.GuessFloor, "Guess domain floor m")
	domainCmd.Flags().IntVar(&domainLength, "stream-length", def.StreamSize, "Stream length n")
}
