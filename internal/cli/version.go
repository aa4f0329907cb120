package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "portalctl %s\n", a.Info.Version)
			fmt.Fprintf(out, "  Git Commit:  %s\n", a.Info.GitCommit)
			fmt.Fprintf(out, "  Build Time:  %s\n", a.Info.BuildTime)
			fmt.Fprintf(out, "  Go Version:  %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
