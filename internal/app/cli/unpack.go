package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	coreerrors "rawbridge-core/internal/core/errors"
	corelog "rawbridge-core/internal/core/log"
	"rawbridge-core/internal/core/safe"
	"rawbridge-core/internal/engine"
	"rawbridge-core/internal/session"
)

// unpackResult 单个文件的批处理结果
type unpackResult struct {
	file    string
	output  string
	image   *engine.Image
	elapsed time.Duration
	err     error
}

func (a *App) newUnpackCommand() *cobra.Command {
	var (
		workers   int
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "unpack <file>...",
		Short: "Unpack and process RAW files, optionally writing PNG output",
		Long: `Runs open, unpack and process for every file. Files are decoded concurrently,
one session per goroutine, at most --workers at a time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers <= 0 {
				workers = a.cfg.Batch.Workers
			}
			return a.runUnpack(cmd.Context(), args, workers, outputDir)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent sessions (default from batch.workers)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Write processed images as PNG into this directory")
	return cmd
}

func (a *App) runUnpack(parent context.Context, files []string, workers int, outputDir string) error {
	cfg, err := a.sessionConfig()
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx := a.signalContext(parent)

	// 每个 goroutine 只写自己的下标
	results := make([]unpackResult, len(files))
	outputs := make([]string, len(files))
	if outputDir != "" {
		for i, stem := range outputStems(files) {
			outputs[i] = filepath.Join(outputDir, stem+".png")
		}
	}

	panicsBefore := safe.GetStats().PanicCount
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, file := range files {
		if ctx.Err() != nil {
			results[i] = unpackResult{file: file, err: coreerrors.Wrap(ctx.Err(), coreerrors.CodeCancelled, "batch cancelled")}
			continue
		}
		g.Go(func() error {
			results[i] = decodeFile(cfg, file, outputs[i])
			// 单个文件失败不影响其他文件
			return nil
		})
	}
	_ = g.Wait()

	return a.reportUnpack(results, safe.GetStats().PanicCount-panicsBefore)
}

// decodeFile 完整会话：open → unpack → process → (写出) → close
func decodeFile(cfg session.Config, file, output string) unpackResult {
	start := time.Now()
	r := unpackResult{file: file}

	s, err := session.New(cfg)
	if err != nil {
		r.err = err
		return r
	}
	defer s.Close()

	logger := corelog.WithFields(map[string]interface{}{"session": s.ID(), "source": file})
	for _, step := range []func() error{
		func() error { return s.OpenFile(file) },
		s.Unpack,
		s.Process,
	} {
		if err := step(); err != nil {
			r.err = err
			logger.WithError(err).Debug("decode failed")
			return r
		}
	}

	img, err := s.Image()
	if err != nil {
		r.err = err
		return r
	}
	r.image = img

	if output != "" {
		r.output = output
		if err := writePNG(r.output, img); err != nil {
			r.err = err
			return r
		}
	}
	r.elapsed = time.Since(start)
	return r
}

// reportUnpack 逐个输出结果；recovered 为批处理期间导出回调恢复的 panic 数
func (a *App) reportUnpack(results []unpackResult, recovered int64) error {
	var firstErr error
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			a.out.Error("%s: %s (%s)", r.file, r.err, engine.StatusOf(r.err))
			continue
		}
		msg := fmt.Sprintf("%s: %s, %d bits, %s", r.file,
			sizeString(r.image.Width, r.image.Height), r.image.Bits, r.elapsed.Round(time.Millisecond))
		if r.output != "" {
			msg += " -> " + r.output
		}
		a.out.Success("%s", msg)
	}

	if recovered > 0 {
		a.out.Warning("%d panics recovered in stream callbacks", recovered)
	}
	if failed > 0 {
		a.out.Warning("%d of %d files failed", failed, len(results))
		return firstErr
	}
	return nil
}

// outputStems 每个输入对应的输出文件名（不含扩展名）
// 不同目录下的同名文件依次加 -1、-2 后缀，避免并发写同一个文件
func outputStems(files []string) []string {
	used := make(map[string]bool, len(files))
	stems := make([]string, len(files))
	for i, file := range files {
		base := filepath.Base(file)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		name := stem
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s-%d", stem, n)
		}
		used[name] = true
		stems[i] = name
	}
	return stems
}

func sizeString(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
