package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/danielhkuo/campus-ballot/models"
)

func TestTallyWorkbook(t *testing.T) {
	cfg := models.ElectionConfig{
		Scope:         models.Primary(),
		OrgName:       "Student Union",
		ElectionTitle: "General Election",
	}
	tally := models.Tally{
		Scope:        models.Primary(),
		TotalBallots: 5,
		ComputedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Positions: map[string]models.PositionTally{
			"Treasurer": {
				Position: "Treasurer",
				Candidates: []models.CandidateTally{
					{CandidateID: "k", CandidateName: "Kim", VoteCount: 2, Rank: 1, Winner: true},
					{CandidateID: "z", CandidateName: "Zed", VoteCount: 2, Rank: 1, Winner: true},
				},
				Winners:    []string{"k", "z"},
				Tied:       true,
				TotalVotes: 4,
			},
			"President": {
				Position: "President",
				Candidates: []models.CandidateTally{
					{CandidateID: "a", CandidateName: "Ada", VoteCount: 4, Rank: 1, Winner: true},
					{CandidateID: "b", CandidateName: "Bob", VoteCount: 1, Rank: 2},
				},
				Winners:    []string{"a"},
				TotalVotes: 5,
			},
		},
	}

	data, err := TallyWorkbook(cfg, tally)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, ResultsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, ResultsHeader, rows[0])
	assert.Equal(t, []string{"President", "1", "Ada", "4", "80.0", "Yes"}, rows[1])
	assert.Equal(t, []string{"President", "2", "Bob", "1", "20.0", "No"}, rows[2])
	assert.Equal(t, []string{"Treasurer", "1", "Kim", "2", "50.0", "Tied"}, rows[3])

	title, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "General Election", title)
	ballots, err := f.GetCellValue(SummarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "5", ballots)
}

func TestTallyWorkbookEmpty(t *testing.T) {
	data, err := TallyWorkbook(models.ElectionConfig{}, models.Tally{Scope: models.ClubScope("chess")})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "results-primary.xlsx", Filename(models.Primary()))
	assert.Equal(t, "results-club-chess.xlsx", Filename(models.ClubScope("chess")))
}
