package cli

import (
	"fmt"
	"io"

	"github.com/jrsteele09/carebook-portal/auth"
	"github.com/jrsteele09/carebook-portal/users"
)

const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	GreenInverse = "\033[7;32m"
	RedInverse   = "\033[7;31m"

	ResetColor = "\033[0m" // Reset to default color
)

var stateColours = map[auth.State]string{
	auth.StateLoading:         Gray,
	auth.StateUnauthenticated: RedInverse,
	auth.StateAuthenticated:   GreenInverse,
	auth.StateRefreshPending:  Yellow,
}

var roleColours = map[users.RoleType]string{
	users.RolePatient:    Green,
	users.RoleDoctor:     Blue,
	users.RoleNurse:      Cyan,
	users.RoleLaboratory: Magenta,
	users.RoleAdmin:      Yellow,
	users.RoleSuperAdmin: Red,
}

// painter colours terminal output unless disabled
type painter struct {
	w       io.Writer
	enabled bool
}

func (a *app) painter(w io.Writer) painter {
	return painter{w: w, enabled: !a.flagNoColor}
}

func (p painter) paint(colour, s string) string {
	if !p.enabled || colour == "" {
		return s
	}
	return colour + s + ResetColor
}

func (p painter) state(state auth.State) string {
	return p.paint(stateColours[state], " "+state.String()+" ")
}

func (p painter) role(role users.RoleType) string {
	return p.paint(roleColours[role], role.String())
}

func (p painter) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}
