package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "my_asset_history_2024-08-01.csv", FileName(time.Date(2024, 8, 1, 15, 4, 0, 0, time.UTC)))
}

func TestWrite_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, `"Date","Type","Name","Action","Unit Price","Quantity","Total Amount","Fee","Interest/Dividend","Maturity Date","Status","Remarks"`+"\n", buf.String())
}

func TestWrite_QuotesTextLeavesNumbersBare(t *testing.T) {
	m := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	records := []model.Record{
		{
			Date:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Type:             model.TypeFixedDeposit,
			Name:             `Maybank "Gold" FD`,
			Action:           "Deposit",
			Amount:           decimal.NewFromInt(10000),
			InterestRate:     decimal.NewNullDecimal(decimal.RequireFromString("3.5")),
			InterestDividend: decimal.NewNullDecimal(decimal.RequireFromString("174.52")),
			MaturityDate:     &m,
			Status:           model.StatusActive,
			Remarks:          "12 months, auto-renew",
		},
		{
			Date:             time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Type:             model.TypeStock,
			Name:             "MAYBANK",
			Action:           "Dividend",
			Amount:           decimal.RequireFromString("120.5"),
			UnitPrice:        decimal.NewNullDecimal(decimal.RequireFromString("9.8")),
			Quantity:         decimal.NewNullDecimal(decimal.NewFromInt(1000)),
			Fee:              decimal.NewNullDecimal(decimal.Zero),
			InterestDividend: decimal.NewNullDecimal(decimal.RequireFromString("120.5")),
			Status:           model.StatusActive,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, `"2024-01-01","Fixed Deposit","Maybank ""Gold"" FD","Deposit",,,10000,,174.52,"2024-07-01","Active","12 months, auto-renew [Rate: 3.5%]"`, lines[1])
	assert.Equal(t, `"2024-03-05","Stock","MAYBANK","Dividend",9.8,1000,120.5,0,120.5,"","Active","[Int: 120.5]"`, lines[2])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_PropagatesWriterError(t *testing.T) {
	err := Write(failingWriter{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
