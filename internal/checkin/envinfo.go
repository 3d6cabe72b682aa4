package checkin

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultIPLookupURL is the external address echo service.
const DefaultIPLookupURL = "https://api.ipify.org?format=json"

// EnvInfo is the device environment snapshot sent with each check-in
// and printed on the test ticket.
type EnvInfo struct {
	ExternalIP    string `json:"external_ip"`
	PrinterStatus string `json:"printer_status"`
	LastCheckin   string `json:"last_checkin"`
}

// Gatherer collects environment information. Every probe is best
// effort: a failed lookup becomes a descriptive value, never an error,
// because a degraded device must still check in.
type Gatherer struct {
	IPLookupURL string
	http        *retryablehttp.Client
}

// NewGatherer returns a Gatherer with the default probes.
func NewGatherer() *Gatherer {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.Logger = nil
	return &Gatherer{
		IPLookupURL: DefaultIPLookupURL,
		http:        rc,
	}
}

// Gather returns the environment snapshot for this run.
func (g *Gatherer) Gather() EnvInfo {
	return EnvInfo{
		ExternalIP:    g.externalIP(),
		PrinterStatus: printerStatus(),
		LastCheckin:   time.Now().UTC().Format(time.RFC3339),
	}
}

func (g *Gatherer) externalIP() string {
	resp, err := g.http.Get(g.IPLookupURL)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return body.IP
}

// printerStatus reports the default printer and per-printer status via
// lpstat, matching what a field tech sees at the console.
func printerStatus() string {
	def, err := exec.Command("lpstat", "-d").Output()
	defLine := strings.TrimSpace(string(def))
	if err != nil || defLine == "" {
		defLine = "No default printer found"
	}

	printers, err := exec.Command("lpstat", "-p").Output()
	printerLines := strings.TrimSpace(string(printers))
	if err != nil {
		printerLines = fmt.Sprintf("Error: %v", err)
	}

	return defLine + "\n" + printerLines
}
