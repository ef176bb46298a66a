package tui

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/muesli/termenv"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = copyID

// clipboardCommands lists the commands tried in order for the platform.
func clipboardCommands(goos string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"pbcopy"}}
	case "windows":
		return [][]string{{"clip"}}
	}
	return [][]string{{"wl-copy"}, {"xclip", "-selection", "clipboard"}, {"xsel", "--clipboard", "--input"}}
}

// copyID pipes id into the first installed clipboard command. With none
// installed, as over ssh, the terminal is asked to set it through OSC 52.
func copyID(id string) error {
	for _, argv := range clipboardCommands(runtime.GOOS) {
		path, err := exec.LookPath(argv[0])
		if err != nil {
			continue
		}
		cmd := exec.Command(path, argv[1:]...)
		cmd.Stdin = strings.NewReader(id)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s: %w", argv[0], err)
		}
		return nil
	}
	termenv.NewOutput(os.Stdout).Copy(id)
	return nil
}
