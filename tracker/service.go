package tracker

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"tuition-server-go/attendance"
	"tuition-server-go/db"
	"tuition-server-go/models"
	"tuition-server-go/remote"
	"tuition-server-go/roster"
)

var (
	ErrUnauthorized = errors.New("wrong password")
	ErrUnknownClass = errors.New("unknown class")
	ErrInvalidFee   = errors.New("invalid fee")
)

// DefaultMasterPassword unlocks the gated flows while no password has been set.
const DefaultMasterPassword = "123456"

// SyncError reports a push that failed after the local change was already saved.
type SyncError struct {
	Action string
	Err    error
}

func (e *SyncError) Error() string {
	return "sync " + e.Action + ": " + e.Err.Error()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Remote is the part of the remote client the service depends on.
type Remote interface {
	Pull(ctx context.Context) (*models.Snapshot, error)
	PushSettings(ctx context.Context, password string, fees []models.FeeConfig) (remote.Receipt, error)
	PushImport(ctx context.Context, students []models.ImportedStudent) (remote.Receipt, error)
	PushAttendance(ctx context.Context, className string, students []models.AttendanceSync) (remote.Receipt, error)
}

// RemoteFactory builds a Remote for the endpoint currently in the document.
type RemoteFactory func(endpoint string) Remote

// HTTPRemote returns a RemoteFactory backed by remote.Client.
func HTTPRemote(timeout time.Duration) RemoteFactory {
	return func(endpoint string) Remote {
		return remote.New(endpoint, timeout)
	}
}

type Options struct {
	Policy         attendance.PresencePolicy
	MasterPassword string
}

// Service owns the document and runs every flow that changes it. Each flow mutates
// the document, persists it, and only then pushes to the remote endpoint. A failed
// push never rolls back the local change.
//
// The mutex only guards memory. Two flows running at once still race at the
// persistence layer and the last write wins.
type Service struct {
	store   *db.DataStore
	remotes RemoteFactory
	opts    Options

	mu   sync.Mutex
	data *models.AppData
}

// NewService creates a Service. Start must be called before use.
func NewService(store *db.DataStore, remotes RemoteFactory, opts Options) *Service {
	if opts.MasterPassword == "" {
		opts.MasterPassword = DefaultMasterPassword
	}
	return &Service{store: store, remotes: remotes, opts: opts}
}

// Start loads the document from the store.
func (svc *Service) Start(ctx context.Context) {
	data := svc.store.Initialize(ctx)
	svc.mu.Lock()
	svc.data = data
	svc.mu.Unlock()
	log.Printf("Loaded document: %d students, endpoint %s", svc.countStudents(data), data.SheetLink)
}

func (svc *Service) countStudents(data *models.AppData) int {
	n := 0
	for _, sheet := range data.Sheets {
		n += len(sheet.Students)
	}
	return n
}

// Snapshot returns a copy of the current document.
func (svc *Service) Snapshot() *models.AppData {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.data.Clone()
}

// Authorize checks the admin password. While none is set, the master password is accepted.
func (svc *Service) Authorize(password string) error {
	svc.mu.Lock()
	want := svc.data.PasswordC2
	svc.mu.Unlock()
	if want == "" {
		want = svc.opts.MasterPassword
	}
	if password != want {
		return ErrUnauthorized
	}
	return nil
}

// commit persists next and makes it the current document.
func (svc *Service) commit(ctx context.Context, next *models.AppData) error {
	if err := svc.store.Persist(ctx, next); err != nil {
		return errors.Wrap(err, "persisting document")
	}
	svc.data = next
	return nil
}

// AttendanceResult is the outcome of one attendance session.
type AttendanceResult struct {
	ClassName string                  `json:"className"`
	Fee       int64                   `json:"fee"`
	Students  []models.AttendanceSync `json:"students"`
	Synced    bool                    `json:"synced"`
}

// RecordAttendance records one session for every student of className. presence is
// keyed by models.StudentKey; students missing from it follow the presence policy.
// With push set, the result is sent to the remote endpoint after it is saved.
func (svc *Service) RecordAttendance(ctx context.Context, className string, presence map[string]bool, push bool) (AttendanceResult, error) {
	if !models.IsValidGrade(className) {
		return AttendanceResult{}, models.NewValidationError(
			errors.Wrapf(ErrUnknownClass, "%q", className),
			models.FieldError{Field: "className", Error: "class must be one of Lop9, Lop10, Lop11, Lop12"},
		)
	}

	svc.mu.Lock()
	next := svc.data.Clone()
	sheet := next.Sheets[className]
	fee := next.FeeFor(className)
	payload := attendance.Record(&sheet, presence, fee, svc.opts.Policy)
	next.Sheets[className] = sheet
	err := svc.commit(ctx, next)
	endpoint := next.SheetLink
	svc.mu.Unlock()
	if err != nil {
		return AttendanceResult{}, err
	}

	res := AttendanceResult{ClassName: className, Fee: fee, Students: payload}
	log.Printf("Recorded attendance for %s: %d students", className, len(payload))

	if !push || endpoint == "" {
		return res, nil
	}
	if _, err := svc.remotes(endpoint).PushAttendance(ctx, className, payload); err != nil {
		return res, &SyncError{Action: models.ActionUpdateAttendance, Err: err}
	}
	res.Synced = true
	return res, nil
}

// ImportResult is the outcome of a roster import or manual add.
type ImportResult struct {
	Imported int            `json:"imported"`
	PerClass map[string]int `json:"perClass"`
	Synced   bool           `json:"synced"`
}

// ImportRoster replaces all four buckets with rows. Rows that fail the filters are dropped.
func (svc *Service) ImportRoster(ctx context.Context, rows []roster.Row, push bool) (ImportResult, error) {
	svc.mu.Lock()
	next := svc.data.Clone()
	flat := roster.Replace(next, rows)
	err := svc.commit(ctx, next)
	endpoint := next.SheetLink
	res := ImportResult{Imported: len(flat), PerClass: perClass(next)}
	svc.mu.Unlock()
	if err != nil {
		return ImportResult{}, err
	}
	log.Printf("Imported %d of %d roster rows", len(flat), len(rows))

	if !push || endpoint == "" {
		return res, nil
	}
	if _, err := svc.remotes(endpoint).PushImport(ctx, flat); err != nil {
		return res, &SyncError{Action: models.ActionImportStudents, Err: err}
	}
	res.Synced = true
	return res, nil
}

func perClass(data *models.AppData) map[string]int {
	out := make(map[string]int, len(models.ValidGrades))
	for _, g := range models.ValidGrades {
		out[g] = len(data.Sheets[g].Students)
	}
	return out
}

// AddStudent appends one student. On sync the whole roster is pushed, because the
// remote side rewrites each grade sheet it receives.
func (svc *Service) AddStudent(ctx context.Context, row roster.Row, push bool) (models.Student, bool, error) {
	svc.mu.Lock()
	next := svc.data.Clone()
	st, err := roster.Add(next, row)
	if err != nil {
		svc.mu.Unlock()
		return models.Student{}, false, err
	}
	err = svc.commit(ctx, next)
	endpoint := next.SheetLink
	flat := roster.Flatten(next)
	svc.mu.Unlock()
	if err != nil {
		return models.Student{}, false, err
	}
	log.Printf("Added student %s (%s)", st.Name, st.Class)

	if !push || endpoint == "" {
		return st, false, nil
	}
	if _, err := svc.remotes(endpoint).PushImport(ctx, flat); err != nil {
		return st, false, &SyncError{Action: models.ActionImportStudents, Err: err}
	}
	return st, true, nil
}

// ClearStudents empties all four buckets locally. The remote store is left alone.
func (svc *Service) ClearStudents(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	next := svc.data.Clone()
	next.Sheets = models.EmptySheets()
	if err := svc.commit(ctx, next); err != nil {
		return err
	}
	log.Println("Cleared all students")
	return nil
}

// PullFromRemote replaces the local sheets (and the password, when the remote sends
// one) with the remote snapshot. On failure the document is untouched.
func (svc *Service) PullFromRemote(ctx context.Context) (*models.AppData, error) {
	svc.mu.Lock()
	endpoint := svc.data.SheetLink
	svc.mu.Unlock()
	if endpoint == "" {
		return nil, remote.ErrNoEndpoint
	}

	snap, err := svc.remotes(endpoint).Pull(ctx)
	if err != nil {
		log.Printf("Error pulling from %s: %v", endpoint, err)
		return nil, errors.Wrap(err, "pulling remote data")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	next := svc.data.Clone()
	next.Sheets = snap.Sheets
	if snap.Password != nil && *snap.Password != "" {
		next.PasswordC2 = string(*snap.Password)
	}
	db.Sanitize(next)
	if err := svc.commit(ctx, next); err != nil {
		return nil, err
	}
	log.Printf("Pulled %d students from remote", svc.countStudents(next))
	return next.Clone(), nil
}

// Settings is the editable configuration part of the document.
type Settings struct {
	Password  string             `json:"password"`
	Fees      []models.FeeConfig `json:"fees"`
	SheetLink string             `json:"sheetLink"`
}

// SaveSettings stores settings locally and pushes them when push is set or the
// endpoint changed. Fees for unknown classes (ErrUnknownClass) or below zero
// (ErrInvalidFee) are rejected.
func (svc *Service) SaveSettings(ctx context.Context, in Settings, push bool) (bool, error) {
	var flds []models.FieldError
	cause := ErrInvalidFee
	for _, f := range in.Fees {
		if !models.IsValidGrade(f.ClassName) {
			cause = ErrUnknownClass
			flds = append(flds, models.FieldError{Field: "fees", Error: "unknown class " + f.ClassName})
		} else if f.Fee < 0 {
			flds = append(flds, models.FieldError{Field: "fees", Error: "fee for " + f.ClassName + " must not be negative"})
		}
	}
	if len(flds) > 0 {
		return false, models.NewValidationError(cause, flds...)
	}

	svc.mu.Lock()
	next := svc.data.Clone()
	prevEndpoint := next.SheetLink
	next.PasswordC2 = in.Password
	for _, f := range in.Fees {
		setFee(next, f)
	}
	next.SheetLink = strings.TrimSpace(in.SheetLink)
	if next.SheetLink == "" {
		next.SheetLink = svc.store.DefaultEndpoint()
	}
	err := svc.commit(ctx, next)
	password, fees, endpoint := next.PasswordC2, append([]models.FeeConfig(nil), next.Fees...), next.SheetLink
	svc.mu.Unlock()
	if err != nil {
		return false, err
	}

	if !push && endpoint == prevEndpoint {
		return false, nil
	}
	if _, err := svc.remotes(endpoint).PushSettings(ctx, password, fees); err != nil {
		return false, &SyncError{Action: models.ActionUpdateSettings, Err: err}
	}
	return true, nil
}

func setFee(data *models.AppData, fc models.FeeConfig) {
	for i := range data.Fees {
		if data.Fees[i].ClassName == fc.ClassName {
			data.Fees[i].Fee = fc.Fee
			return
		}
	}
	data.Fees = append(data.Fees, fc)
}

// Stats returns dashboard figures for the current document.
func (svc *Service) Stats() attendance.Stats {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return attendance.Summarize(svc.data)
}

// Students lists a grade's students, optionally filtered by a case-insensitive match
// on name or school.
func (svc *Service) Students(className, search string) ([]models.Student, error) {
	if !models.IsValidGrade(className) {
		return nil, models.NewValidationError(errors.Wrapf(ErrUnknownClass, "%q", className),
			models.FieldError{Field: "className", Error: "class must be one of Lop9, Lop10, Lop11, Lop12"})
	}
	svc.mu.Lock()
	students := append([]models.Student{}, svc.data.Sheets[className].Students...)
	svc.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return students, nil
	}
	out := students[:0]
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.School), q) {
			out = append(out, s)
		}
	}
	return out, nil
}
