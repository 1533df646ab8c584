package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"rawbridge-core/internal/session"
)

func (a *App) newThumbCommand() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "thumb <file>...",
		Short: "Extract embedded thumbnails",
		Long: `Writes the thumbnail embedded in each RAW file into the output directory.
JPEG thumbnails are written unchanged, bitmap thumbnails as PNG.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runThumb(args, outputDir)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	return cmd
}

func (a *App) runThumb(files []string, outputDir string) error {
	cfg, err := a.sessionConfig()
	if err != nil {
		return err
	}

	var firstErr error
	failed := 0
	for i, stem := range outputStems(files) {
		output, err := extractThumb(cfg, files[i], filepath.Join(outputDir, stem))
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			a.out.Error("%s: %s", files[i], err)
			continue
		}
		a.out.Success("%s -> %s", files[i], output)
	}
	if failed > 0 {
		a.out.Warning("%d of %d files failed", failed, len(files))
	}
	return firstErr
}

// extractThumb 只打开文件，不解包
func extractThumb(cfg session.Config, file, stem string) (string, error) {
	s, err := session.New(cfg)
	if err != nil {
		return "", err
	}
	defer s.Close()

	if err := s.OpenFile(file); err != nil {
		return "", err
	}
	thumb, err := s.Thumbnail()
	if err != nil {
		return "", err
	}
	output := stem + imageExt(thumb)
	if err := writeImage(output, thumb); err != nil {
		return "", err
	}
	return output, nil
}
