// Package remote talks to the spreadsheet-backed Apps Script endpoint that acts as
// the optional remote database.
//
// Reads are ordinary GETs whose JSON body is decoded and sanitized. Writes are
// fire-and-forget: the request is dispatched and its response is discarded
// unread, so a push succeeds as soon as it leaves without a transport error.
// Status codes of pushes are never inspected.
package remote

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"tuition-server-go/models"
)

var (
	ErrNoEndpoint = errors.New("remote endpoint is not configured")
	ErrBadStatus  = errors.New("remote endpoint returned a non-2xx status")
)

// maxSnapshotBytes bounds the body read by Pull.
const maxSnapshotBytes = 16 << 20

// Receipt records a dispatched push. It carries no remote outcome.
type Receipt struct {
	Action     string
	Dispatched time.Time
}

// Client is bound to a single endpoint URL.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a Client. A zero timeout leaves the transport default in place.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: timeout},
	}
}

// NewWithHTTPClient creates a Client using the given http.Client.
func NewWithHTTPClient(endpoint string, hc *http.Client) *Client {
	return &Client{endpoint: strings.TrimSpace(endpoint), http: hc}
}

// Endpoint returns the URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Pull fetches the remote snapshot. Sheets come back with exactly the four grade
// buckets and without empty or garbage rows. Any failure returns an error and no data.
func (c *Client) Pull(ctx context.Context) (*models.Snapshot, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building pull request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "pulling from remote")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrBadStatus, "status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, errors.Wrap(err, "reading remote body")
	}

	var snap models.Snapshot
	if err := sonic.ConfigStd.Unmarshal(body, &snap); err != nil {
		return nil, errors.Wrap(err, "decoding remote snapshot")
	}
	snap.Sheets = models.SanitizeSheets(snap.Sheets)
	return &snap, nil
}

// PushSettings sends the password and fee catalog.
func (c *Client) PushSettings(ctx context.Context, password string, fees []models.FeeConfig) (Receipt, error) {
	return c.dispatch(ctx, models.ActionUpdateSettings, models.SettingsPayload{
		Action:   models.ActionUpdateSettings,
		Password: password,
		Fees:     fees,
	})
}

// PushImport sends a flattened roster. The remote side replaces each grade sheet it receives.
func (c *Client) PushImport(ctx context.Context, students []models.ImportedStudent) (Receipt, error) {
	if students == nil {
		students = []models.ImportedStudent{}
	}
	return c.dispatch(ctx, models.ActionImportStudents, models.ImportPayload{
		Action: models.ActionImportStudents,
		Data:   students,
	})
}

// PushAttendance sends the result of one attendance session for a grade.
func (c *Client) PushAttendance(ctx context.Context, className string, students []models.AttendanceSync) (Receipt, error) {
	if students == nil {
		students = []models.AttendanceSync{}
	}
	return c.dispatch(ctx, models.ActionUpdateAttendance, models.AttendancePayload{
		Action:    models.ActionUpdateAttendance,
		ClassName: className,
		Students:  students,
	})
}

// dispatch POSTs payload as a text/plain JSON body and drops the response unread.
func (c *Client) dispatch(ctx context.Context, action string, payload interface{}) (Receipt, error) {
	if c.endpoint == "" {
		return Receipt{}, ErrNoEndpoint
	}
	body, err := sonic.ConfigStd.Marshal(payload)
	if err != nil {
		return Receipt{}, errors.Wrapf(err, "encoding %s payload", action)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, errors.Wrapf(err, "building %s request", action)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("Error dispatching %s to remote: %v", action, err)
		return Receipt{}, errors.Wrapf(err, "dispatching %s", action)
	}
	resp.Body.Close()

	log.Printf("Dispatched %s to remote (%d bytes)", action, len(body))
	return Receipt{Action: action, Dispatched: time.Now()}, nil
}
