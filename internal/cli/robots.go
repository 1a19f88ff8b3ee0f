package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/robots"
)

// RobotInfo describes one registered robot.
type RobotInfo struct {
	Name         string `json:"name"`
	Capabilities string `json:"capabilities"`
}

type robotList []RobotInfo

func (l robotList) String() string {
	var buf strings.Builder
	for _, r := range l {
		fmt.Fprintf(&buf, "%-14s %s\n", r.Name, r.Capabilities)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// NewRobotsCommand creates the robots command.
func NewRobotsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "robots",
		Short:         "List the built-in robots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := robots.Default()
			list := make(robotList, 0, len(reg.Names()))
			for _, name := range reg.Names() {
				f, _ := reg.Lookup(name)
				list = append(list, RobotInfo{Name: name, Capabilities: engine.Classify(f()).Caps.String()})
			}
			return newFormatter(rootOpts, cmd).Success(list)
		},
	}
}
