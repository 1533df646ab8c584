package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 彩色输出
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Output 命令输出，非终端时自动关闭颜色
type Output struct {
	w io.Writer

	success func(a ...interface{}) string
	failure func(a ...interface{}) string
	warning func(a ...interface{}) string
	bold    func(a ...interface{}) string
	faint   func(a ...interface{}) string
}

// NewOutput 创建输出；noColor 或 w 不是终端时不输出颜色
func NewOutput(w io.Writer, noColor bool) *Output {
	if !noColor && !isTerminal(w) {
		noColor = true
	}
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c.SprintFunc()
	}
	return &Output{
		w:       w,
		success: mk(color.FgGreen),
		failure: mk(color.FgRed),
		warning: mk(color.FgYellow),
		bold:    mk(color.Bold),
		faint:   mk(color.Faint),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Success 成功消息
func (o *Output) Success(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.success("OK"), fmt.Sprintf(format, args...))
}

// Error 错误消息
func (o *Output) Error(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.failure("FAIL"), fmt.Sprintf(format, args...))
}

// Warning 警告消息
func (o *Output) Warning(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.warning("WARN"), fmt.Sprintf(format, args...))
}

// Header 标题
func (o *Output) Header(title string) {
	fmt.Fprintln(o.w, o.bold(title))
	fmt.Fprintln(o.w, o.faint(strings.Repeat("─", min(len(title), 80))))
}

// KeyValue 键值对
func (o *Output) KeyValue(key string, value interface{}) {
	fmt.Fprintf(o.w, "  %-14s %v\n", key+":", value)
}

// Plain 普通文本
func (o *Output) Plain(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format+"\n", args...)
}
