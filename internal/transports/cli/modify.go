package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"vmctl/internal/modules/vm"
)

const (
	kindPortForwarding = "port_forwarding"
	kindNetworkCard    = "network_card"
)

func newModifyCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Изменить настройки ВМ",
	}
	cmd.AddCommand(newModifySetCmd(s), newModifyAddCmd(s), newModifyDeleteCmd(s))
	return cmd
}

func newModifySetCmd(s *state) *cobra.Command {
	var name, ram, network, networkType, headless string
	var cpu int
	cmd := &cobra.Command{
		Use:   "set <vm>",
		Short: "Изменить свойства ВМ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fwd := []string{args[0]}
			if headless != "" {
				fwd = append(fwd, opt("headless", headless))
			}
			if cpu > 0 {
				fwd = append(fwd, opt("cpu", strconv.Itoa(cpu)))
			}
			for _, kv := range [][2]string{{"name", name}, {"ram", ram}, {"network", network}, {"network_type", networkType}} {
				if kv[1] != "" {
					fwd = append(fwd, opt(kv[0], kv[1]))
				}
			}
			if len(fwd) == 1 {
				return s.fail(cmd, "bad_arguments", fmt.Errorf("nothing to set: %w", vm.ErrInvalidArgument))
			}
			data, err := s.exec(cmd, "vm", "set", fwd...)
			if err != nil {
				return err
			}
			res, _ := data.(vm.PropertyResult)
			return s.emit(cmd, res, func(w io.Writer) error {
				for _, o := range res.Succeeded {
					fmt.Fprintf(w, "%s set to %s\n", o.Property, o.Value)
				}
				for _, o := range res.Failed {
					fmt.Fprintf(w, "failed to set %s to %s\n", o.Property, o.Value)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&headless, "headless", "", "headless режим: true|false")
	cmd.Flags().StringVar(&name, "name", "", "новое имя")
	cmd.Flags().IntVar(&cpu, "cpu", 0, "число CPU")
	cmd.Flags().StringVar(&ram, "ram", "", "память: 2048, 2048MB или 2GB")
	cmd.Flags().StringVar(&network, "network", "", "индекс сетевой карты")
	cmd.Flags().StringVar(&networkType, "network-type", "", "тип подключения: shared|host|disconnected")
	return cmd
}

func newModifyAddCmd(s *state) *cobra.Command {
	var (
		name, hostIP, protocol string
		hostPort, guestPort    int
		connection, model      string
	)
	cmd := &cobra.Command{
		Use:       "add <vm> port_forwarding|network_card",
		Short:     "Добавить проброс порта или сетевую карту",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{kindPortForwarding, kindNetworkCard},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, kind := args[0], args[1]
			switch kind {
			case kindPortForwarding:
				if name == "" || hostPort == 0 || guestPort == 0 {
					return s.fail(cmd, "bad_arguments", fmt.Errorf("--name, --host-port and --guest-port are required: %w", vm.ErrInvalidArgument))
				}
				data, err := s.exec(cmd, "vm", "add-pf", id, name, strconv.Itoa(hostPort), strconv.Itoa(guestPort),
					opt("host_ip", hostIP), opt("protocol", protocol))
				if err != nil {
					return err
				}
				return s.result(cmd, data, "rule added successfully", "failed to add rule")
			case kindNetworkCard:
				data, err := s.exec(cmd, "vm", "add-nic", id, opt("connection", connection), opt("model", model))
				if err != nil {
					return err
				}
				return s.result(cmd, data, "network card added successfully", "failed to add network card")
			default:
				return s.fail(cmd, "bad_arguments", fmt.Errorf("unknown kind %q: %w", kind, vm.ErrInvalidArgument))
			}
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "имя правила")
	cmd.Flags().StringVar(&hostIP, "host-ip", "", "адрес на узле")
	cmd.Flags().IntVar(&hostPort, "host-port", 0, "порт на узле")
	cmd.Flags().IntVar(&guestPort, "guest-port", 0, "порт в ВМ")
	cmd.Flags().StringVar(&protocol, "protocol", "tcp", "tcp|udp")
	cmd.Flags().StringVar(&connection, "connection", "shared", "тип подключения карты")
	cmd.Flags().StringVar(&model, "model", "e1000", "модель карты")
	return cmd
}

func newModifyDeleteCmd(s *state) *cobra.Command {
	var name string
	var index int
	cmd := &cobra.Command{
		Use:       "delete <vm> port_forwarding|network_card",
		Short:     "Удалить проброс порта или сетевую карту",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{kindPortForwarding, kindNetworkCard},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, kind := args[0], args[1]
			switch kind {
			case kindPortForwarding:
				if name == "" {
					return s.fail(cmd, "bad_arguments", fmt.Errorf("--name is required: %w", vm.ErrInvalidArgument))
				}
				data, err := s.exec(cmd, "vm", "remove-pf", id, name)
				if err != nil {
					return err
				}
				return s.result(cmd, data, "rule removed successfully", "failed to remove rule")
			case kindNetworkCard:
				if index < 0 {
					return s.fail(cmd, "bad_arguments", fmt.Errorf("--index is required: %w", vm.ErrInvalidArgument))
				}
				data, err := s.exec(cmd, "vm", "remove-nic", id, strconv.Itoa(index))
				if err != nil {
					return err
				}
				return s.result(cmd, data, "network card removed successfully", "failed to remove network card")
			default:
				return s.fail(cmd, "bad_arguments", fmt.Errorf("unknown kind %q: %w", kind, vm.ErrInvalidArgument))
			}
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "имя правила")
	cmd.Flags().IntVar(&index, "index", -1, "индекс сетевой карты")
	return cmd
}

func (s *state) result(cmd *cobra.Command, data any, okMsg, failMsg string) error {
	if !succeeded(data) {
		return s.fail(cmd, "operation_failed", fmt.Errorf("%s: %w", failMsg, errNotSucceeded))
	}
	return s.emit(cmd, data, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, okMsg)
		return err
	})
}
