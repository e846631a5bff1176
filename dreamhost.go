package dyndns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// defaultAPIURL is the DreamHost API endpoint. Every operation is a GET
// against this one URL; the cmd query parameter selects the operation.
const defaultAPIURL = "https://api.dreamhost.com/"

// noRecordCode is the code DreamHost reports when a command matched no
// records. It arrives as an error on the wire but is not one for us:
// listing an empty zone and removing a record that is already gone both
// leave the provider in the requested state.
const noRecordCode = "no_record"

// NewDreamhost constructs a [Provider] that manages records through the
// DreamHost DNS API. The key must be granted the dns-list_records,
// dns-add_record, and dns-remove_record commands.
func NewDreamhost(key string, options ...DreamhostOption) *Dreamhost {
	d := &Dreamhost{
		key:     key,
		baseURL: defaultAPIURL,
		logger:  logr.Discard(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// A DreamhostOption configures the provider returned by NewDreamhost.
type DreamhostOption func(*Dreamhost)

// WithAPIURL overrides the DreamHost API endpoint,
// which is mostly useful for pointing tests at a local server.
func WithAPIURL(rawurl string) DreamhostOption {
	return func(d *Dreamhost) {
		d.baseURL = rawurl
	}
}

// WithHTTPClient sets the http.Client used for API requests. The default
// is http.DefaultClient, or whatever [UsingHTTPClient] propagated.
func WithHTTPClient(httpclient *http.Client) DreamhostOption {
	return func(d *Dreamhost) {
		d.httpClient = httpclient
	}
}

// Dreamhost implements [Provider] for the DreamHost DNS API.
//
// It should be constructed with [NewDreamhost].
type Dreamhost struct {
	key        string
	baseURL    string
	httpClient *http.Client
	logger     logr.Logger
}

// ListRecords implements [Provider]. DreamHost's list command takes no
// server-side filters, so the full record set is fetched and the filter is
// applied here.
func (d *Dreamhost) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	const cmd = "dns-list_records"
	// The list nonce is random and never reused; only mutating commands
	// carry a stable one.
	resp, err := d.call(ctx, cmd, uuid.New().String(), nil)
	if err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		if resp.code() == noRecordCode {
			return nil, nil
		}
		return nil, resp.apiError(cmd)
	}

	var entries []dreamhostRecord
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return nil, &ProtocolError{Op: cmd, Err: fmt.Errorf("unexpected data shape: %w", err)}
	}
	var records []Record
	for _, e := range entries {
		r := Record{
			Name:     e.Record,
			Type:     e.Type,
			Value:    e.Value,
			Editable: e.Editable == "1",
			Comment:  e.Comment,
		}
		if filter.Matches(r) {
			records = append(records, r)
		}
	}
	d.logger.V(1).Info("listed records", "total", len(entries), "matching", len(records))
	return records, nil
}

// AddRecord implements [Provider].
func (d *Dreamhost) AddRecord(ctx context.Context, r Record) error {
	const cmd = "dns-add_record"
	params := url.Values{}
	params.Set("record", r.Name)
	params.Set("type", r.Type)
	params.Set("value", r.Value)
	if r.Comment != "" {
		params.Set("comment", r.Comment)
	}
	resp, err := d.call(ctx, cmd, recordNonce(r.Name), params)
	if err != nil {
		return err
	}
	if resp.Result != "success" {
		return resp.apiError(cmd)
	}
	d.logger.V(1).Info("added record", "record", r.Name, "type", r.Type, "value", r.Value)
	return nil
}

// RemoveRecord implements [Provider]. Removing a record the provider does
// not have reports success, since the end state is the one asked for.
func (d *Dreamhost) RemoveRecord(ctx context.Context, r Record) error {
	const cmd = "dns-remove_record"
	params := url.Values{}
	params.Set("record", r.Name)
	params.Set("type", r.Type)
	params.Set("value", r.Value)
	resp, err := d.call(ctx, cmd, recordNonce(r.Name), params)
	if err != nil {
		return err
	}
	if resp.Result != "success" && resp.code() != noRecordCode {
		return resp.apiError(cmd)
	}
	d.logger.V(1).Info("removed record", "record", r.Name, "type", r.Type, "value", r.Value)
	return nil
}

// recordNonce is the uuid sent with mutating commands. It is derived from
// the record name rather than random, so a retried add or remove repeats
// the uuid of the attempt before it and DreamHost can drop the duplicate
// instead of applying it twice.
func recordNonce(record string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(record)).String()
}

// call performs one GET against the API and decodes the response envelope.
func (d *Dreamhost) call(ctx context.Context, cmd, nonce string, params url.Values) (*dreamhostResponse, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", d.key)
	q.Set("uuid", nonce)
	q.Set("cmd", cmd)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &ConnectionError{Op: cmd, Err: fmt.Errorf("error creating request: %w", err)}
	}

	httpclient := d.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}
	resp, err := httpclient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Op: cmd, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ConnectionError{Op: cmd, Err: fmt.Errorf("server returned %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &ConnectionError{Op: cmd, Err: fmt.Errorf("error reading response body: %w", err)}
	}

	parsed := &dreamhostResponse{}
	if err := json.Unmarshal(body, parsed); err != nil {
		return nil, &ProtocolError{Op: cmd, Err: fmt.Errorf("response is not valid JSON: %w", err)}
	}
	if parsed.Result == "" {
		return nil, &ProtocolError{Op: cmd, Err: errors.New("response has no result field")}
	}
	return parsed, nil
}

// dreamhostResponse is the envelope common to every API response. For a
// successful list, data holds the record objects; for a rejected request
// it holds the error code as a bare string.
type dreamhostResponse struct {
	Result string          `json:"result"`
	Data   json.RawMessage `json:"data"`
	Reason string          `json:"reason"`
}

// code returns the provider's error code from a non-success response.
func (r *dreamhostResponse) code() string {
	var code string
	if err := json.Unmarshal(r.Data, &code); err != nil {
		return ""
	}
	return code
}

func (r *dreamhostResponse) apiError(cmd string) error {
	return &APIError{Op: cmd, Code: r.code(), Reason: r.Reason}
}

// dreamhostRecord is the wire form of one record in a dns-list_records
// response. editable comes back as the string "0" or "1".
type dreamhostRecord struct {
	Record   string `json:"record"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	Editable string `json:"editable"`
	Comment  string `json:"comment"`
}
