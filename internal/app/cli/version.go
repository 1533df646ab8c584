package cli

import (
	"github.com/spf13/cobra"

	"rawbridge-core/internal/engine"
	"rawbridge-core/internal/version"
)

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information and available engine backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			a.out.Plain("rawbridge %s", version.GetVersion())
			names := engine.Names()
			if len(names) == 0 {
				a.out.Warning("no engine backends compiled in (build with -tags libraw)")
				return
			}
			for _, name := range names {
				b, _ := engine.Lookup(name)
				v := "unknown"
				if b.Version != nil {
					v = b.Version()
				}
				a.out.KeyValue(name, v)
			}
		},
	}
}
