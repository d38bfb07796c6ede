package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anstrom/portscout/internal/ports"
	"github.com/anstrom/portscout/internal/services"
)

func newPortsCommand() *cobra.Command {
	var withServices bool

	cmd := &cobra.Command{
		Use:   "ports <expression>",
		Short: "Show the ports a port expression expands to",
		Example: `  portscout ports 1-1024
  portscout ports top-20 --services`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := ports.Parse(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %d ports\n", spec, spec.Kind, spec.Count())

			resolved := spec.Resolve()
			if !withServices {
				parts := make([]string, len(resolved))
				for i, p := range resolved {
					parts[i] = strconv.Itoa(int(p))
				}
				fmt.Fprintln(out, strings.Join(parts, ","))
				return nil
			}

			classifier := services.NewClassifier()
			for _, p := range resolved {
				fmt.Fprintf(out, "%5d  %s\n", p, classifier.Classify(p, ""))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withServices, "services", false, "List each port with its well-known service")
	return cmd
}
