package checkin

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintTestTicket writes the multi-line diagnostic receipt an operator
// reads off the device console (or the printer itself) to confirm the
// agent is alive and what it knows about its environment.
func PrintTestTicket(w io.Writer, deviceUUID string, env EnvInfo) {
	detail, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		detail = []byte("{}")
	}

	fmt.Fprintln(w, "==================== TEST TICKET ====================")
	fmt.Fprintf(w, "Printer UUID:    %s\n", deviceUUID)
	fmt.Fprintf(w, "External IP:     %s\n", env.ExternalIP)
	fmt.Fprintf(w, "Last Check-in:   %s\n", env.LastCheckin)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, string(detail))
	fmt.Fprintln(w, "====================================================")
}
