package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuition-server-go/attendance"
	"tuition-server-go/db"
	"tuition-server-go/models"
	"tuition-server-go/remote"
	"tuition-server-go/roster"
)

// fakeRemote records pushes and serves a canned snapshot.
type fakeRemote struct {
	endpoint   string
	snapshot   *models.Snapshot
	pullErr    error
	pushErr    error
	settings   []models.SettingsPayload
	imports    [][]models.ImportedStudent
	attendance []models.AttendancePayload
}

func (f *fakeRemote) Pull(context.Context) (*models.Snapshot, error) {
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	return f.snapshot, nil
}

func (f *fakeRemote) PushSettings(_ context.Context, password string, fees []models.FeeConfig) (remote.Receipt, error) {
	if f.pushErr != nil {
		return remote.Receipt{}, f.pushErr
	}
	f.settings = append(f.settings, models.SettingsPayload{Action: models.ActionUpdateSettings, Password: password, Fees: fees})
	return remote.Receipt{Action: models.ActionUpdateSettings}, nil
}

func (f *fakeRemote) PushImport(_ context.Context, students []models.ImportedStudent) (remote.Receipt, error) {
	if f.pushErr != nil {
		return remote.Receipt{}, f.pushErr
	}
	f.imports = append(f.imports, students)
	return remote.Receipt{Action: models.ActionImportStudents}, nil
}

func (f *fakeRemote) PushAttendance(_ context.Context, className string, students []models.AttendanceSync) (remote.Receipt, error) {
	if f.pushErr != nil {
		return remote.Receipt{}, f.pushErr
	}
	f.attendance = append(f.attendance, models.AttendancePayload{Action: models.ActionUpdateAttendance, ClassName: className, Students: students})
	return remote.Receipt{Action: models.ActionUpdateAttendance}, nil
}

func setup(t *testing.T) (*Service, *fakeRemote, *db.DataStore) {
	t.Helper()
	fake := &fakeRemote{}
	store := db.NewDataStore(&db.MemoryBlobStore{}, "https://remote.test/exec")
	svc := NewService(store, func(endpoint string) Remote {
		fake.endpoint = endpoint
		return fake
	}, Options{Policy: attendance.DefaultPolicy})
	svc.Start(context.Background())
	return svc, fake, store
}

func importTwo(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.ImportRoster(context.Background(), []roster.Row{
		{Name: "Nguyễn Văn A", Class: "9A1", PhoneNumber: "0911111111"},
		{Name: "Trần B", Class: "9A2", PhoneNumber: "0922222222", SubGroup: "Lop9.2"},
	}, false)
	require.NoError(t, err)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	assert.NoError(t, svc.Authorize(DefaultMasterPassword))
	assert.ErrorIs(t, svc.Authorize(""), ErrUnauthorized)

	_, err := svc.SaveSettings(ctx, Settings{Password: "s3cret", SheetLink: "https://remote.test/exec"}, false)
	require.NoError(t, err)
	assert.NoError(t, svc.Authorize("s3cret"))
	assert.ErrorIs(t, svc.Authorize(DefaultMasterPassword), ErrUnauthorized)
}

func TestRecordAttendance(t *testing.T) {
	ctx := context.Background()
	svc, fake, store := setup(t)
	importTwo(t, svc)

	absent := map[string]bool{models.StudentKey("Trần B", "0922222222"): false}
	res, err := svc.RecordAttendance(ctx, models.GradeLop9, absent, true)
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Equal(t, int64(60000), res.Fee)

	require.Len(t, fake.attendance, 1)
	sent := fake.attendance[0]
	assert.Equal(t, models.GradeLop9, sent.ClassName)
	assert.Equal(t, []models.AttendanceSync{
		{Name: "Nguyễn Văn A", PhoneNumber: "0911111111", IsPresent: true, TotalAmount: 60000},
		{Name: "Trần B", PhoneNumber: "0922222222", IsPresent: false, TotalAmount: 0, Note: "Lop9.2"},
	}, sent.Students)

	// persisted before the push
	persisted := store.Initialize(ctx)
	assert.Equal(t, models.SlotPresent, persisted.Sheets[models.GradeLop9].Students[0].Attendance[0])
	assert.Equal(t, models.SlotAbsent, persisted.Sheets[models.GradeLop9].Students[1].Attendance[0])
}

func TestRecordAttendance_KeepsLocalOnPushFailure(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := setup(t)
	importTwo(t, svc)
	fake.pushErr = errors.New("connection refused")

	res, err := svc.RecordAttendance(ctx, models.GradeLop9, nil, true)
	var syncErr *SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, models.ActionUpdateAttendance, syncErr.Action)
	assert.False(t, res.Synced)

	students := svc.Snapshot().Sheets[models.GradeLop9].Students
	assert.Equal(t, int64(60000), students[0].TotalAmount)
}

func TestRecordAttendance_Invariants(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	importTwo(t, svc)

	for i := 0; i < 14; i++ {
		_, err := svc.RecordAttendance(ctx, models.GradeLop9, nil, false)
		require.NoError(t, err)
	}
	for _, st := range svc.Snapshot().Sheets[models.GradeLop9].Students {
		assert.Len(t, st.Attendance, models.AttendanceSlots)
		assert.Equal(t, int64(st.Attendance.Count(models.SlotPresent))*60000, st.TotalAmount)
	}
}

func TestRecordAttendance_UnknownClass(t *testing.T) {
	svc, fake, _ := setup(t)
	_, err := svc.RecordAttendance(context.Background(), "LopKhac", nil, true)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrUnknownClass)
	assert.Empty(t, fake.attendance)
}

func TestImportRoster(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := setup(t)

	res, err := svc.ImportRoster(ctx, []roster.Row{
		{Name: "Nguyễn Văn A", Class: "9A1", PhoneNumber: "0911111111"},
		{Name: "", Class: "9A2", PhoneNumber: "0922222222"},
		{Name: "Lê C", Class: "11-Chuyên"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, map[string]int{"Lop9": 1, "Lop10": 0, "Lop11": 1, "Lop12": 0}, res.PerClass)
	assert.True(t, res.Synced)

	require.Len(t, fake.imports, 1)
	assert.Len(t, fake.imports[0], 2)
	assert.Equal(t, "https://remote.test/exec", fake.endpoint)
}

func TestAddStudent_PushesWholeRoster(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := setup(t)
	importTwo(t, svc)

	st, synced, err := svc.AddStudent(ctx, roster.Row{Name: "Hồ E", Class: "12B"}, true)
	require.NoError(t, err)
	assert.True(t, synced)
	assert.Equal(t, models.Ordinal(1), st.Stt)
	require.Len(t, fake.imports, 1)
	assert.Len(t, fake.imports[0], 3)

	_, _, err = svc.AddStudent(ctx, roster.Row{Name: "X", Class: "Khác"}, true)
	assert.ErrorIs(t, err, roster.ErrInvalidRow)
	assert.Len(t, fake.imports, 1)
}

func TestClearStudents(t *testing.T) {
	ctx := context.Background()
	svc, fake, store := setup(t)
	importTwo(t, svc)

	require.NoError(t, svc.ClearStudents(ctx))
	data := store.Initialize(ctx)
	require.Len(t, data.Sheets, 4)
	for _, g := range models.ValidGrades {
		assert.Empty(t, data.Sheets[g].Students)
	}
	assert.Empty(t, fake.imports)
}

func TestPullFromRemote(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := setup(t)
	pw := models.LooseString("fromsheet")
	fake.snapshot = &models.Snapshot{
		Sheets: models.SanitizeSheets(map[string]models.ClassSheet{
			models.GradeLop10: {ClassName: models.GradeLop10, Students: []models.Student{{Name: "Remote", PhoneNumber: "1"}}},
		}),
		Password: &pw,
	}

	data, err := svc.PullFromRemote(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Sheets[models.GradeLop10].Students, 1)
	assert.NoError(t, svc.Authorize("fromsheet"))
}

func TestPullFromRemote_FailureLeavesDocument(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := setup(t)
	importTwo(t, svc)
	before := svc.Snapshot()

	fake.pullErr = remote.ErrBadStatus
	_, err := svc.PullFromRemote(ctx)
	assert.ErrorIs(t, err, remote.ErrBadStatus)
	assert.Equal(t, before, svc.Snapshot())
}

func TestSaveSettings(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := setup(t)

	synced, err := svc.SaveSettings(ctx, Settings{
		Password:  "pw",
		Fees:      []models.FeeConfig{{ClassName: models.GradeLop12, Fee: 80000}},
		SheetLink: "https://remote.test/exec",
	}, false)
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Empty(t, fake.settings)
	assert.Equal(t, int64(80000), svc.Snapshot().FeeFor(models.GradeLop12))

	// a changed endpoint pushes even without an explicit request
	synced, err = svc.SaveSettings(ctx, Settings{Password: "pw", SheetLink: "https://other.test/exec"}, false)
	require.NoError(t, err)
	assert.True(t, synced)
	require.Len(t, fake.settings, 1)
	assert.Equal(t, "https://other.test/exec", fake.endpoint)
	assert.Len(t, fake.settings[0].Fees, 4)

	// empty endpoint falls back to the default
	_, err = svc.SaveSettings(ctx, Settings{Password: "pw"}, false)
	require.NoError(t, err)
	assert.Equal(t, "https://remote.test/exec", svc.Snapshot().SheetLink)
}

func TestSaveSettings_Validation(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.SaveSettings(context.Background(), Settings{
		Fees: []models.FeeConfig{{ClassName: "Lop8", Fee: 1}, {ClassName: models.GradeLop9, Fee: -1}},
	}, true)
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestSaveSettings_NegativeFee(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.SaveSettings(context.Background(), Settings{
		Fees: []models.FeeConfig{{ClassName: models.GradeLop9, Fee: -1}},
	}, false)
	assert.ErrorIs(t, err, ErrInvalidFee)
	assert.NotErrorIs(t, err, ErrUnknownClass)
	assert.Equal(t, int64(60000), svc.Snapshot().FeeFor(models.GradeLop9))
}

func TestStudents_Search(t *testing.T) {
	svc, _, _ := setup(t)
	importTwo(t, svc)

	got, err := svc.Students(models.GradeLop9, "trần")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Trần B", got[0].Name)

	got, err = svc.Students(models.GradeLop9, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.Students("Lop13", "")
	assert.ErrorIs(t, err, ErrUnknownClass)
}
