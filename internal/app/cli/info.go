package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rawbridge-core/internal/engine"
	"rawbridge-core/internal/session"
)

// fileInfo info --yaml 的输出条目
type fileInfo struct {
	File string      `yaml:"file"`
	Info engine.Info `yaml:"info,omitempty"`
	// Error 打开失败时的错误
	Error string `yaml:"error,omitempty"`
}

func (a *App) newInfoCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "info <file>...",
		Short: "Open RAW files and print camera and size metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInfo(cmd, args, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print metadata as YAML")
	return cmd
}

func (a *App) runInfo(cmd *cobra.Command, files []string, asYAML bool) error {
	cfg, err := a.sessionConfig()
	if err != nil {
		return err
	}

	var firstErr error
	results := make([]fileInfo, 0, len(files))
	for _, file := range files {
		info, err := readInfo(cfg, file)
		entry := fileInfo{File: file, Info: info}
		if err != nil {
			entry.Error = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		}
		results = append(results, entry)
	}

	if asYAML {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return firstErr
	}

	for _, r := range results {
		if r.Error != "" {
			a.out.Error("%s: %s", r.File, r.Error)
			continue
		}
		a.out.Header(r.File)
		a.out.KeyValue("Camera", r.Info.Make+" "+r.Info.Model)
		a.out.KeyValue("Raw size", sizeString(r.Info.RawWidth, r.Info.RawHeight))
		a.out.KeyValue("Output size", sizeString(r.Info.Width, r.Info.Height))
		a.out.KeyValue("Colors", r.Info.Colors)
		a.out.KeyValue("Filters", hex32(r.Info.Filters))
	}
	return firstErr
}

// readInfo 只打开文件读取元数据
func readInfo(cfg session.Config, file string) (engine.Info, error) {
	s, err := session.New(cfg)
	if err != nil {
		return engine.Info{}, err
	}
	defer s.Close()

	if err := s.OpenFile(file); err != nil {
		return engine.Info{}, err
	}
	return s.Info()
}
