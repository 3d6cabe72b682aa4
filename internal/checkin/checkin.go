// Package checkin implements the telemetry collaborator the update
// orchestrator hands off to: it gathers device and environment
// information, posts a schema-validated check-in to the fleet backend,
// and prints the diagnostic test ticket that confirms liveness to an
// operator at the device.
package checkin

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/checkin.schema.json
var schemaBytes []byte

// DefaultBackendURL is the fleet check-in endpoint.
const DefaultBackendURL = "https://checkoff.mccannical.com/printer_checkin"

// DefaultTimeout bounds each check-in HTTP attempt.
const DefaultTimeout = 5 * time.Second

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// Payload is the outbound check-in body, matching the backend contract.
type Payload struct {
	PrinterUUID string `json:"printer_uuid"`
	ExternalIP  string `json:"external_ip"`
	Status      string `json:"status"`
	LastCheckin int64  `json:"last_checkin"`
}

// Client posts check-ins to the fleet backend with retries.
type Client struct {
	BackendURL string
	http       *retryablehttp.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBackendURL overrides the check-in endpoint (useful for testing).
func WithBackendURL(u string) Option {
	return func(c *Client) {
		c.BackendURL = u
	}
}

// NewClient returns a check-in client with the retry profile the fleet
// backend expects: three retries with backoff on transient failures.
func NewClient(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 4 * time.Second
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.Logger = nil

	c := &Client{
		BackendURL: DefaultBackendURL,
		http:       rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildPayload assembles the outbound payload from gathered env info
// and the device identity.
func BuildPayload(env EnvInfo, deviceUUID string) Payload {
	return Payload{
		PrinterUUID: deviceUUID,
		ExternalIP:  env.ExternalIP,
		Status:      env.PrinterStatus,
		LastCheckin: time.Now().Unix(),
	}
}

// Validate checks the payload against the backend's JSON schema before
// it leaves the device.
func Validate(p Payload) error {
	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("loading check-in schema: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("preparing payload for validation: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("check-in payload invalid: %s", summarize(ve))
		}
		return fmt.Errorf("check-in payload invalid: %w", err)
	}
	return nil
}

// Post validates and sends the payload. The response body is truncated
// in the returned summary to keep operator logs readable.
func (c *Client) Post(p Payload) (string, error) {
	if err := Validate(p); err != nil {
		return "", err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	resp, err := c.http.Post(c.BackendURL, "application/json", data)
	if err != nil {
		return "", fmt.Errorf("posting check-in: %w", err)
	}
	defer resp.Body.Close()

	var body [300]byte
	n, _ := resp.Body.Read(body[:])
	return fmt.Sprintf("%s %s", resp.Status, strings.TrimSpace(string(body[:n]))), nil
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("checkin.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("checkin.schema.json")
	})
	return compiledSchema, compileErr
}

// summarize flattens a validation error tree into one operator-readable
// line.
func summarize(ve *jsonschema.ValidationError) string {
	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			msg := e.Error()
			if e.ErrorKind != nil {
				msg = e.ErrorKind.LocalizedString(printer)
			}
			parts = append(parts, loc+": "+msg)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return strings.Join(parts, "; ")
}
