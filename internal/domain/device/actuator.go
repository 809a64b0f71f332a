package device

// Actuator is the humidifier output together with the manual-mode flag.
// The zero value is OFF in automatic mode.
type Actuator struct {
	// Active is the ON/OFF output.
	Active bool
	// ManualMode records that the last toggle came from the local button.
	ManualMode bool
}

// ToggleManual flips the output and the manual flag together.
// Two calls restore the original values.
func (a *Actuator) ToggleManual() {
	a.ManualMode = !a.ManualMode
	a.Active = !a.Active
}

// Apply sets the output from a remote command. ManualMode is left as is:
// manual mode only ends with another local toggle.
func (a *Actuator) Apply(cmd Command) {
	a.Active = cmd == CommandOn
}

// Status returns the command that describes the current output.
func (a Actuator) Status() Command {
	if a.Active {
		return CommandOn
	}

	return CommandOff
}
