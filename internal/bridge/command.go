package bridge

import "strings"

// Command is an immutable adb argument vector replayed once per device.
type Command struct {
	args []string
}

func NewCommand(args ...string) Command {
	return Command{args: append([]string(nil), args...)}
}

func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// For injects the device selector in front of the arguments: -s <device> args...
func (c Command) For(device string) []string {
	out := make([]string, 0, len(c.args)+2)
	out = append(out, "-s", device)
	out = append(out, c.args...)
	return out
}

func (c Command) String() string {
	return strings.Join(c.args, " ")
}

func StopPackage(pkg string) Command {
	return NewCommand("shell", "am", "force-stop", pkg)
}

func StartPackage(pkg string) Command {
	return NewCommand("shell", "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
}

func ClearPackage(pkg string) Command {
	return NewCommand("shell", "pm", "clear", pkg)
}

func InstallAPK(path string) Command {
	return NewCommand("install", path)
}

func UninstallPackage(pkg string) Command {
	return NewCommand("uninstall", pkg)
}

func ShowAddress(iface string) Command {
	return NewCommand("shell", "ip", "addr", "show", iface)
}

func Screencap() Command {
	return NewCommand("exec-out", "screencap", "-p")
}

func ListPackages() Command {
	return NewCommand("shell", "pm", "list", "packages")
}

// ScreenRecord runs as a single shell string so the device-side shell owns the process.
func ScreenRecord(remotePath string) Command {
	return NewCommand("shell", "screenrecord "+remotePath)
}

func Pull(remotePath, localPath string) Command {
	return NewCommand("pull", remotePath, localPath)
}

func RemoveRemote(remotePath string) Command {
	return NewCommand("shell", "rm", remotePath)
}
