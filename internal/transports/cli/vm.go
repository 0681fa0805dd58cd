package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vmctl/internal/projection"
)

func newVersionCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию vmctl и приложения",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			body := map[string]any{"vmctl": s.version}
			resp, err := env.Registry.Execute(cmd.Context(), "vm", "version", nil)
			if err == nil {
				body["app"] = field(resp.Data, "app")
				body["app_version"] = field(resp.Data, "version")
			} else {
				body["app_error"] = err.Error()
			}
			return s.emit(cmd, body, func(w io.Writer) error {
				fmt.Fprintf(w, "vmctl %s\n", s.version)
				if err != nil {
					fmt.Fprintf(w, "app: unavailable (%v)\n", err)
					return nil
				}
				fmt.Fprintf(w, "%s %s\n", body["app"], body["app_version"])
				return nil
			})
		},
	}
}

func newListCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Список ВМ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := s.exec(cmd, "vm", "list")
			if err != nil {
				return err
			}
			set, _ := data.(projection.RecordSet)
			return s.emit(cmd, set, func(w io.Writer) error {
				return printRecords(w, set, "id", "name")
			})
		},
	}
}

func newShowCmd(s *state) *cobra.Command {
	var stateFlag, ip, pf bool
	cmd := &cobra.Command{
		Use:   "show <vm>",
		Short: "Показать сводку ВМ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := s.exec(cmd, "vm", "show", args[0],
				opt("state", strconv.FormatBool(stateFlag)),
				opt("ip", strconv.FormatBool(ip)),
				opt("port_forwarding", strconv.FormatBool(pf)))
			if err != nil {
				return err
			}
			rec, _ := data.(projection.Record)
			return s.emit(cmd, rec, func(w io.Writer) error {
				return printShow(w, rec)
			})
		},
	}
	cmd.Flags().BoolVar(&stateFlag, "state", true, "запрашивать состояние")
	cmd.Flags().BoolVar(&ip, "ip-address", true, "запрашивать IP")
	cmd.Flags().BoolVar(&pf, "port-forwarding", false, "показать правила проброса портов")
	return cmd
}

// printShow печатает сводку; у не запущенной ВМ остаются только id, имя и статус.
func printShow(w io.Writer, rec projection.Record) error {
	summary := rec.Keep("id", "name", "status", "ip")
	if st, ok := rec.Get("status"); ok && st != "running" {
		summary = rec.Keep("id", "name", "status")
	}
	if err := printRecords(w, projection.RecordSet{summary}, summary.Keys()...); err != nil {
		return err
	}
	rules, ok := rec.Get("port_forwarding")
	if !ok {
		return nil
	}
	set, _ := rules.(projection.RecordSet)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Port forwarding:")
	if len(set) == 0 {
		fmt.Fprintln(w, "  none")
		return nil
	}
	return printRecords(w, set, "name", "protocol", "host ip", "host port", "guest ip", "guest port", "description")
}

func printRecords(w io.Writer, set projection.RecordSet, keys ...string) error {
	tw := newTable(w)
	fmt.Fprintln(tw, header(keys))
	for _, rec := range set {
		cols := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = rec.String(k)
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func newDescribeCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <vm>",
		Short: "Полное описание ВМ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := s.exec(cmd, "vm", "describe", args[0])
			if err != nil {
				return err
			}
			rec, _ := data.(projection.Record)
			return s.emit(cmd, rec, func(w io.Writer) error {
				heading := lipgloss.NewRenderer(w).NewStyle().Bold(true)
				printTree(w, heading, rec, 0)
				return nil
			})
		},
	}
}

// printTree печатает вложенный документ; заголовки секций выделяются на терминале.
func printTree(w io.Writer, heading lipgloss.Style, rec projection.Record, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, e := range rec.Entries() {
		switch v := e.Value.(type) {
		case projection.Record:
			fmt.Fprintf(w, "%s%s:\n", pad, heading.Render(e.Key))
			printTree(w, heading, v, depth+1)
		case projection.RecordSet:
			fmt.Fprintf(w, "%s%s:", pad, heading.Render(e.Key))
			if len(v) == 0 {
				fmt.Fprintln(w, " none")
				continue
			}
			fmt.Fprintln(w)
			for i, item := range v {
				fmt.Fprintf(w, "%s  [%d]\n", pad, i)
				printTree(w, heading, item, depth+2)
			}
		default:
			fmt.Fprintf(w, "%s%s: %v\n", pad, e.Key, v)
		}
	}
}

var powerMessages = map[string][2]string{
	"start":    {"started", "start"},
	"pause":    {"paused", "pause"},
	"shutdown": {"shut down", "shut down"},
	"reboot":   {"rebooted", "reboot"},
	"delete":   {"deleted", "delete"},
}

func newPowerCmd(s *state, name, short string) *cobra.Command {
	var restart, force bool
	cmd := &cobra.Command{
		Use:   name + " <vm>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []string
			switch name {
			case "start":
				extra = append(extra, opt("restart", strconv.FormatBool(restart)))
			case "shutdown", "reboot":
				extra = append(extra, opt("force", strconv.FormatBool(force)))
			}
			return s.power(cmd, name, args[0], extra...)
		},
	}
	switch name {
	case "start":
		cmd.Flags().BoolVar(&restart, "restart", false, "перезапустить, если ВМ уже работает")
	case "shutdown", "reboot":
		cmd.Flags().BoolVarP(&force, "force", "f", false, "принудительно")
	}
	return cmd
}

func (s *state) power(cmd *cobra.Command, name, vm string, extra ...string) error {
	data, err := s.exec(cmd, "vm", name, append([]string{vm}, extra...)...)
	if err != nil {
		return err
	}
	msg := powerMessages[name]
	if !succeeded(data) {
		return s.fail(cmd, "operation_failed", fmt.Errorf("failed to %s VM %s: %w", msg[1], vm, errNotSucceeded))
	}
	return s.emit(cmd, data, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "VM %s successfully %s\n", vm, msg[0])
		return err
	})
}

func newDeleteCmd(s *state) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <vm>",
		Short: "Удалить ВМ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := s.confirm(cmd, fmt.Sprintf("Delete VM %s? [y/N] ", args[0]))
				if err != nil {
					return s.fail(cmd, "bad_arguments", err)
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
					return nil
				}
			}
			return s.power(cmd, "delete", args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "не спрашивать подтверждение")
	return cmd
}

// confirm спрашивает подтверждение. Без терминала и в машинном режиме требуется --yes.
func (s *state) confirm(cmd *cobra.Command, prompt string) (bool, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); s.machine || (ok && !term.IsTerminal(int(f.Fd()))) {
		return false, fmt.Errorf("confirmation required, pass --yes")
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func newCreateCmd(s *state) *cobra.Command {
	var name, osFamily, osType string
	cmd := &cobra.Command{
		Use:   "create <image>",
		Short: "Создать ВМ из установочного образа",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := s.exec(cmd, "vm", "create", args[0],
				opt("name", name), opt("os", osType), opt("os_family", osFamily))
			if err != nil {
				return err
			}
			if !succeeded(data) {
				return s.fail(cmd, "operation_failed", fmt.Errorf("failed to create VM from %s: %w", args[0], errNotSucceeded))
			}
			return s.emit(cmd, data, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "VM created: %s\n", field(data, "id"))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "имя ВМ (по умолчанию из имени файла)")
	cmd.Flags().StringVar(&osFamily, "os-family", "", "семейство ОС")
	cmd.Flags().StringVar(&osType, "os-type", "", "тип ОС")
	return cmd
}
