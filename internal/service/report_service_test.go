package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestExportWritesFilteredRows(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	first := fx.submit(t)
	fx.submit(t)
	_, err := fx.requests.UpdateStatus(ctx, fx.staff, first.ID, "in_progress")
	require.NoError(t, err)

	var buf bytes.Buffer
	svc := NewReportService(fx.requests)
	require.NoError(t, svc.Export(ctx, fx.staff, RequestListFilter{Status: "in_progress"}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Alice", rows[1][1])
	assert.Equal(t, "In Progress", rows[1][5])
	assert.Equal(t, "agent", rows[1][6])

	err = svc.Export(ctx, fx.viewer, RequestListFilter{}, &buf)
	assert.Equal(t, apperrors.CodeForbidden, domainCode(t, err))
}

func TestReportFileName(t *testing.T) {
	assert.Equal(t, "requests_2024-03-01.xlsx", ReportFileName("2024-03-01"))
}
