// Package all links every shell command provider.
package all

import (
	_ "github.com/robotalks/mcu.go/pkg/cli/cmds/board"
)
