package importer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/loader"
	"go-rail-employee-registry/internal/registry"
	"go-rail-employee-registry/internal/store/memstore"
)

const sampleCSV = "\xEF\xBB\xBFemployee name,hrms_id,DOB,BASIC PAY,Unnamed: 4,PF Number\n" +
	"Ram Singh,H001,15-08-1985,45000,,PF1\n" +
	",,,,,\n" +
	"Sita Devi,H002,1990-01-31,n/a,x,\n"

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "Ram Singh", first.Fields[dto.FieldEmployeeName])
	assert.Equal(t, "H001", first.Fields[dto.FieldHRMSID])
	assert.Equal(t, time.Date(1985, 8, 15, 0, 0, 0, 0, time.UTC), first.Fields["DOB"])
	assert.Equal(t, float64(45000), first.Fields[dto.FieldBasicPay])
	assert.Equal(t, "PF1", first.Fields["PF Number"])

	second := rows[1]
	assert.Equal(t, 4, second.Line, "blank lines are skipped but counted")
	assert.Equal(t, "n/a", second.Fields[dto.FieldBasicPay], "pay is never coerced when not numeric")
	assert.Equal(t, time.Date(1990, 1, 31, 0, 0, 0, 0, time.UTC), second.Fields["DOB"])
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Employee Name", "HRMS ID", "DOR", "STATION"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ram Singh", "H001", 45658, "Delhi"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	rows, err := Read(&buf, "staff.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ram Singh", rows[0].Fields[dto.FieldEmployeeName])
	assert.Equal(t, "Delhi", rows[0].Fields[dto.FieldStation])
	dor, ok := rows[0].Fields["DOR"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, "2025-01-01", dor.Format(time.DateOnly))
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	_, err := Read(strings.NewReader(""), "staff.pdf")
	assert.Error(t, err)
}

func TestReadEmptyCSV(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestRunAddsThroughRegistry(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	st := memstore.New()
	st.Seed("existing", map[string]any{dto.FieldEmployeeName: "Old", dto.FieldHRMSID: "H009"})
	svc := registry.New(st, loader.New(st, time.Hour, logger), registry.WithLogger(logger))

	rows := []Row{
		{Line: 2, Fields: map[string]any{dto.FieldEmployeeName: "A", dto.FieldHRMSID: "H001", "Unnamed: 4": "junk", "DOB": time.Date(1985, 8, 15, 0, 0, 0, 0, time.UTC)}},
		{Line: 3, Fields: map[string]any{dto.FieldEmployeeName: "", dto.FieldHRMSID: "H002"}},
		{Line: 4, Fields: map[string]any{dto.FieldEmployeeName: "C", dto.FieldHRMSID: "H001"}},
		{Line: 5, Fields: map[string]any{dto.FieldEmployeeName: "D", dto.FieldHRMSID: "H009"}},
	}

	res, err := Run(ctx, svc, rows, Options{Concurrency: 1, Logger: logger})
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, 2, res.Added[0].Line)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{res.Skipped[0].Line, res.Skipped[1].Line, res.Skipped[2].Line})
	assert.Empty(t, res.Failed)

	d, ok := st.Get(res.Added[0].ID)
	require.True(t, ok)
	assert.Equal(t, "1985-08-15", d.Fields["DOB"])
	assert.NotContains(t, d.Fields, "Unnamed: 4")
}

type scriptedAdder struct {
	mu   sync.Mutex
	errs map[string]error
}

func (a *scriptedAdder) Add(_ context.Context, in registry.AddInput) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.errs[in.HRMSID]; ok {
		return "", err
	}
	return "id-" + in.HRMSID, nil
}

func TestRunReportsRejectedRows(t *testing.T) {
	logger, _ := test.NewNullLogger()
	adder := &scriptedAdder{errs: map[string]error{
		"H002": apperr.Rejected("add record", errors.New("quota exceeded")),
	}}
	rows := []Row{
		{Line: 2, Fields: map[string]any{dto.FieldEmployeeName: "A", dto.FieldHRMSID: "H001"}},
		{Line: 3, Fields: map[string]any{dto.FieldEmployeeName: "B", dto.FieldHRMSID: "H002"}},
		{Line: 4, Fields: map[string]any{dto.FieldEmployeeName: "C", dto.FieldHRMSID: "H003"}},
	}

	res, err := Run(context.Background(), adder, rows, Options{Concurrency: 3, Logger: logger})
	require.NoError(t, err)
	assert.Len(t, res.Added, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Failed[0].Line)
	assert.Contains(t, res.Failed[0].Reason, "quota exceeded")
}

func TestRunAbortsWhenUnavailable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	adder := &scriptedAdder{errs: map[string]error{
		"H001": apperr.Unavailable("load records", errors.New("connection refused")),
	}}
	rows := []Row{{Line: 2, Fields: map[string]any{dto.FieldEmployeeName: "A", dto.FieldHRMSID: "H001"}}}

	_, err := Run(context.Background(), adder, rows, Options{Logger: logger})
	assert.ErrorIs(t, err, apperr.ErrDataSourceUnavailable)
}
