package csat

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/godilite/helpdesk-kpi/internal/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRank(t *testing.T) {
	r := NewRanker("Ótimo", "Bom")

	cases := []struct {
		in   string
		want int
	}{
		{"Ótimo", RankTop},
		{"  ótimo - muito satisfeito", RankTop},
		{"OTIMO", RankTop},
		{"Bom", RankSecond},
		{"bom atendimento", RankSecond},
		{"Muito bom", RankOther},
		{"Regular", RankOther},
		{"", RankOther},
		{"   ", RankOther},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, r.Rank(tc.in))
		})
	}

	t.Run("empty labels never match", func(t *testing.T) {
		assert.Equal(t, RankOther, NewRanker("", "").Rank("anything"))
	})
}

func TestDeduplicate(t *testing.T) {
	r := NewRanker("Ótimo", "Bom")

	t.Run("keeps best rating per ticket", func(t *testing.T) {
		rows := []models.SurveyResponse{
			{TicketID: "1", Rating: "Bom", Row: 0},
			{TicketID: "2", Rating: "Ruim", Row: 1},
			{TicketID: "1", Rating: "Ótimo", Row: 2},
			{TicketID: "1", Rating: "", Row: 3},
			{TicketID: " 2 ", Rating: "Bom", Row: 4},
		}

		out, dropped := Deduplicate(rows, r)

		require.Len(t, out, 2)
		assert.Equal(t, 3, dropped)
		assert.Equal(t, "1", out[0].TicketID)
		assert.Equal(t, "Ótimo", out[0].Rating)
		assert.Equal(t, "2", out[1].TicketID)
		assert.Equal(t, "Bom", out[1].Rating)
	})

	t.Run("ties keep original order", func(t *testing.T) {
		rows := []models.SurveyResponse{
			{TicketID: "7", Rating: "Regular", Row: 0},
			{TicketID: "7", Rating: "Ruim", Row: 1},
			{TicketID: "7", Rating: "Bom demais", Row: 2},
			{TicketID: "7", Rating: "Bom", Row: 3},
		}

		out, _ := Deduplicate(rows, r)

		require.Len(t, out, 1)
		assert.Equal(t, 2, out[0].Row)
	})

	t.Run("mixed key spellings group together", func(t *testing.T) {
		rows := []models.SurveyResponse{
			{TicketID: "0042", Rating: "Bom"},
			{TicketID: "42.0", Rating: "Ótimo"},
			{TicketID: "42", Rating: "Ruim"},
		}

		out, dropped := Deduplicate(rows, r)

		require.Len(t, out, 1)
		assert.Equal(t, 2, dropped)
		assert.Equal(t, "42", out[0].TicketID)
		assert.Equal(t, "Ótimo", out[0].Rating)
	})

	t.Run("rows without key are discarded", func(t *testing.T) {
		out, dropped := Deduplicate([]models.SurveyResponse{{TicketID: " ", Rating: "Ótimo"}}, r)

		assert.Empty(t, out)
		assert.Zero(t, dropped)
	})

	t.Run("k duplicates collapse to one", func(t *testing.T) {
		ratings := []string{"Regular", "Bom", "Ruim", "Ótimo", "Bom", "", "Péssimo"}
		var rows []models.SurveyResponse
		for i, rt := range ratings {
			rows = append(rows, models.SurveyResponse{TicketID: "9", Rating: rt, Row: i})
		}

		out, dropped := Deduplicate(rows, r)

		require.Len(t, out, 1)
		assert.Equal(t, len(ratings)-1, dropped)
		assert.Equal(t, "Ótimo", out[0].Rating)
	})
}

func TestScore(t *testing.T) {
	p := NewScoreParser(StrategyFirstDigit)

	cases := []struct {
		in   string
		want *int
	}{
		{"5 - Ótimo", intPtr(5)},
		{"Ótimo - nota 5", intPtr(5)},
		{"Ótimo", intPtr(5)},
		{"Bom", intPtr(4)},
		{"nota: 3", intPtr(3)},
		{"Péssimo", intPtr(1)},
		{"sem resposta", nil},
		{"", nil},
		{"   ", nil},
		{"0 - não avaliado", nil},
		{"9", nil},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, p.Score(tc.in))
		})
	}

	t.Run("leading digit strategy", func(t *testing.T) {
		lp := NewScoreParser(StrategyLeadingDigit)

		assert.Equal(t, intPtr(4), lp.Score("4 - Bom"))
		assert.Equal(t, intPtr(2), lp.Score("Ruim - nota 5"), "falls back to the label, digit ignored")
		assert.Nil(t, lp.Score("nota 5"))
	})
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyFirstDigit, s)

	s, err = ParseStrategy(" LEADING_DIGIT ")
	require.NoError(t, err)
	assert.Equal(t, StrategyLeadingDigit, s)

	_, err = ParseStrategy("last_digit")
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	p := NewScoreParser(StrategyFirstDigit)

	t.Run("left join keeps ticket cardinality", func(t *testing.T) {
		tickets := []models.Ticket{{ID: "1"}, {ID: "2"}, {ID: "3"}}
		surveys := []models.SurveyResponse{
			{TicketID: "1", Rating: "Ótimo"},
			{TicketID: "1", Rating: "Ruim"},
			{TicketID: "3", Rating: "sem resposta"},
			{TicketID: "99", Rating: "Bom"},
		}

		joined := Join(tickets, surveys, p)

		require.Len(t, joined, len(tickets))
		require.NotNil(t, joined[0].Survey)
		assert.Equal(t, "Ótimo", joined[0].Survey.Rating, "first answer wins on residual duplicates")
		assert.Equal(t, intPtr(5), joined[0].Score)
		assert.Nil(t, joined[1].Survey)
		assert.Nil(t, joined[1].Score)
		require.NotNil(t, joined[2].Survey)
		assert.Nil(t, joined[2].Score)
	})

	t.Run("integer and string identifiers match after normalization", func(t *testing.T) {
		numeric := map[string]int{"a": 101, "b": 102}
		tickets := []models.Ticket{{ID: "a"}, {ID: "b"}}
		surveys := []models.SurveyResponse{
			{TicketID: " 0101 ", Rating: "4"},
			{TicketID: "102.0", Rating: "2"},
		}

		joined := JoinBy(tickets, surveys,
			func(t models.Ticket) any { return numeric[t.ID] },
			func(s models.SurveyResponse) any { return s.TicketID },
			p)

		require.Len(t, joined, 2)
		assert.Equal(t, intPtr(4), joined[0].Score)
		assert.Equal(t, intPtr(2), joined[1].Score)
	})

	t.Run("empty ticket ids never match", func(t *testing.T) {
		joined := Join([]models.Ticket{{ID: ""}}, []models.SurveyResponse{{TicketID: "", Rating: "5"}}, p)

		require.Len(t, joined, 1)
		assert.Nil(t, joined[0].Survey)
	})

	t.Run("cardinality holds for heavily duplicated surveys", func(t *testing.T) {
		var tickets []models.Ticket
		var surveys []models.SurveyResponse
		for i := 0; i < 50; i++ {
			id := strconv.Itoa(i)
			tickets = append(tickets, models.Ticket{ID: id})
			for j := 0; j < 5; j++ {
				surveys = append(surveys, models.SurveyResponse{TicketID: id, Rating: "Bom"})
			}
		}

		canonical, _ := Deduplicate(surveys, NewRanker("Ótimo", "Bom"))
		assert.Len(t, canonical, 50)
		assert.Len(t, Join(tickets, canonical, p), 50)
		assert.Len(t, Join(tickets, surveys, p), 50)
	})
}

func TestScenarioSingleAnalyst(t *testing.T) {
	tickets := []models.Ticket{{ID: "1", Analyst: "A"}, {ID: "2", Analyst: "A"}}
	surveys := []models.SurveyResponse{
		{TicketID: "1", Rating: "Ótimo", Row: 0},
		{TicketID: "1", Rating: "Bom", Row: 1},
	}

	canonical, _ := Deduplicate(surveys, NewRanker("Ótimo", "Bom"))
	require.Len(t, canonical, 1)
	assert.Equal(t, "Ótimo", canonical[0].Rating)

	joined := Join(tickets, canonical, NewScoreParser(StrategyFirstDigit))
	require.Len(t, joined, 2)
	assert.Equal(t, intPtr(5), joined[0].Score)
	assert.Nil(t, joined[1].Score)
}
