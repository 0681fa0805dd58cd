package vm

import (
	"vmctl/internal/projection"
	"vmctl/internal/script"
)

// Шаблоны команд приложения. Списки полей передаются аргументом, см. projection.Encode.
var (
	tplVersion = script.MustParse(`version`)

	tplGet        = script.MustParse(`get {} of vm id "{}"`)
	tplGetSection = script.MustParse(`get {} {} of vm id "{}"`)
	tplGetProp    = script.MustParse(`get {} of {} of vm id "{}"`)

	tplPortForwarding = script.MustParse(`{} of port forwarding of advanced settings of vm id "{}"`)
	tplPFDescription  = script.MustParse(`virtualbox description of port forwarding "{}" of advanced settings of vm id "{}"`)
	tplAddPF          = script.MustParse(`listen on "{}" {} port {} forward to vm id "{}" port {} with name "{}"`)
	tplRemovePF       = script.MustParse(`remove port forwarding "{}" from vm id "{}"`)

	tplStart         = script.MustParse(`start of vm id "{}"`)
	tplSuspend       = script.MustParse(`suspend of vm id "{}"`)
	tplShutdown      = script.MustParse(`shutdown of vm id "{}"`)
	tplForceShutdown = script.MustParse(`force shutdown of vm id "{}"`)
	tplRestart       = script.MustParse(`restart of vm id "{}"`)
	tplDelete        = script.MustParse(`delete vm id "{}"`)

	tplExport   = script.MustParse(`export vm id "{}" to POSIX file "{}" format "{}"`)
	tplCreate   = script.MustParse(`create vm POSIX file "{}" with name "{}" os "{}" os family "{}"`)
	tplProgress = script.MustParse(`get progress of "{}"`)

	tplRename       = script.MustParse(`rename vm id "{}" to name "{}"`)
	tplSetHeadless  = script.MustParse(`set headless vm id "{}" to {}`)
	tplSetProp      = script.MustParse(`set {} vm id "{}" to {}`)
	tplSetPropText  = script.MustParse(`set {} vm id "{}" to "{}"`)
	tplSetNetType   = script.MustParse(`set network card connection type of vm id "{}" with index {} to "{}"`)
	tplAddNetCard   = script.MustParse(`add network card vm id "{}" connection type "{}" model "{}"`)
	tplDelNetCard   = script.MustParse(`remove network card vm id "{}" index {}`)
	tplImportBase   = `import vm POSIX file "{}" with name "{}"`
	tplImportOS     = ` os "{}"`
	tplImportFamily = ` os family "{}"`
)

// Проекции ответов.
var (
	vmInfoFields = projection.Of("id", "name", "status", "ip")
	pfFields     = projection.Of("name", "protocol", "host ip", "host port", "guest ip", "guest port")
)

// Секции describe. Составные секции читаются от вложенной к внешней.
type section struct {
	keys []string
	path []string
	list bool
}

var (
	secBase     = section{keys: []string{"id", "name", "status", "ip", "version"}}
	secAdvanced = section{keys: []string{"snapshot", "headless", "hdpi", "remap cmd"}, path: []string{"advanced settings"}}
	secGuest    = section{keys: []string{"file sharing", "copy paste", "shared folder"}, path: []string{"guest tools", "advanced settings"}}
	secGeneral  = section{keys: []string{"os", "os family", "boot device"}, path: []string{"general settings"}}
	secHardware = section{keys: []string{"chipset", "ram", "acpi", "hpet", "hyperv", "vga"}, path: []string{"hardware"}}

	hardwareLists = []struct {
		name string
		sec  section
	}{
		{"hard disks", section{keys: []string{"drive index", "boot", "controller", "bus", "file", "size"}, path: []string{"hardisks", "hardware"}, list: true}},
		{"audio", section{keys: []string{"audio index", "type"}, path: []string{"audio", "hardware"}, list: true}},
		{"cd roms", section{keys: []string{"cd index", "cd controller", "cd file", "cd bus", "cd type", "media in"}, path: []string{"cd rom", "hardware"}, list: true}},
		{"disk controllers", section{keys: []string{"controller index", "controller type", "controller model", "controller mode"}, path: []string{"disk controller", "hardware"}, list: true}},
		{"network cards", section{keys: []string{"card index", "connection", "pci bus", "mac address", "card model", "card family"}, path: []string{"network card", "hardware"}, list: true}},
	}
)

// Допустимые значения аргументов.
var (
	ExportFormats   = []string{"vmz", "box"}
	NetworkTypes    = []string{"shared", "host", "disconnected"}
	NetworkModels   = []string{"e1000", "rtl8139"}
	defaultProtocol = "tcp"
)
