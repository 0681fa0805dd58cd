package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vmctl/internal/core"
	"vmctl/internal/modules/vm"
)

// Завершение операции: экспорт в box доходит до 2.00, остальные до 1.00.
const (
	progressDone    = 100
	progressDoneBox = 200
)

func newExportCmd(s *state) *cobra.Command {
	var format string
	var silent bool
	cmd := &cobra.Command{
		Use:   "export <vm> <file>",
		Short: "Экспортировать ВМ в файл",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) > 1 {
				file = args[1]
			}
			if format == "" {
				format = "vmz"
			}
			data, err := s.exec(cmd, "vm", "export", args[0], file, opt("format", format))
			if err != nil {
				return err
			}
			done := progressDone
			if format == "box" {
				done = progressDoneBox
			}
			return s.transfer(cmd, "export", field(data, "handle"), done, silent)
		},
	}
	cmd.Flags().StringVar(&format, "fmt", "vmz", "формат: "+strings.Join(vm.ExportFormats, "|"))
	cmd.Flags().BoolVar(&silent, "silent", false, "не ждать завершения, вывести handle")
	return cmd
}

func newImportCmd(s *state) *cobra.Command {
	var name, osFamily, osType string
	var guess, silent bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Импортировать ВМ из vmz/box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if guess {
				suggested := vm.GuessName(args[0])
				return s.emit(cmd, map[string]any{"name": suggested}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, suggested)
					return err
				})
			}
			if name == "" && strings.EqualFold(filepath.Ext(args[0]), ".box") {
				name = vm.GuessName(args[0])
			}
			data, err := s.exec(cmd, "vm", "import", args[0],
				opt("name", name), opt("os", osType), opt("os_family", osFamily))
			if err != nil {
				return err
			}
			return s.transfer(cmd, "import", field(data, "handle"), progressDone, silent)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "имя ВМ")
	cmd.Flags().StringVar(&osFamily, "os-family", "", "семейство ОС")
	cmd.Flags().StringVar(&osType, "os-type", "", "тип ОС")
	cmd.Flags().BoolVarP(&guess, "guess-name", "n", false, "только показать предполагаемое имя")
	cmd.Flags().BoolVar(&silent, "silent", false, "не ждать завершения, вывести handle")
	return cmd
}

// transfer ждет окончания импорта/экспорта, отрисовывая прогресс на терминале.
func (s *state) transfer(cmd *cobra.Command, op, handle string, done int, silent bool) error {
	if handle == "" || handle == "false" {
		return s.fail(cmd, "operation_failed", fmt.Errorf("%s was not started: %w", op, errNotSucceeded))
	}
	if silent {
		return s.emit(cmd, map[string]any{"handle": handle}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, handle)
			return err
		})
	}

	env, err := s.environment(cmd)
	if err != nil {
		return err
	}
	bar := newBar(cmd.ErrOrStderr(), s.machine)
	last := 0
	err = core.Poll(cmd.Context(), env.PollInterval, func(ctx context.Context) (bool, error) {
		p, err := env.Progress(ctx, handle)
		if err != nil {
			return false, err
		}
		last = p
		bar.render(float64(p) / float64(done))
		return p >= done, nil
	})
	bar.finish()
	if err != nil {
		return s.fail(cmd, vm.ErrorCode(err), fmt.Errorf("%s %s: %w", op, handle, err))
	}
	return s.emit(cmd, map[string]any{"handle": handle, "progress": last}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s finished successfully\n", strings.ToUpper(op[:1])+op[1:])
		return err
	})
}

type bar struct {
	w     io.Writer
	model *progress.Model
}

// newBar рисует полосу только на интерактивном stderr.
func newBar(w io.Writer, machine bool) *bar {
	b := &bar{w: w}
	f, ok := w.(*os.File)
	if machine || !ok || !term.IsTerminal(int(f.Fd())) {
		return b
	}
	m := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	b.model = &m
	return b
}

func (b *bar) render(frac float64) {
	if b.model == nil {
		return
	}
	fmt.Fprintf(b.w, "\r%s", b.model.ViewAs(frac))
}

func (b *bar) finish() {
	if b.model != nil {
		fmt.Fprintln(b.w)
	}
}
