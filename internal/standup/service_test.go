package standup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/standup-agent/internal/convstate"
)

const adaJSON = "```json\n" + `{
    "user_name": "Ada",
    "yesterday_work": "wrote tests",
    "today_plan": "fixing the deploy pipeline",
    "blockers": "null",
    "additional_notes": null
}` + "\n```"

func TestSubmit_FullMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.llm.push(adaJSON)

	reply, err := h.svc.Submit(ctx, "u1-05112025", "Hi, I'm Ada. Yesterday I wrote tests. Today I'm fixing the deploy pipeline.")
	require.NoError(t, err)

	assert.Contains(t, reply, "Perfect timing, Ada!")
	assert.Contains(t, reply, "• Yesterday: wrote tests")
	assert.Contains(t, reply, "• Today: fixing the deploy pipeline")
	assert.NotContains(t, reply, "Blockers")

	var rows []StandupReport
	require.NoError(t, h.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "Ada", r.UserName)
	assert.Equal(t, "2025-11-05", r.ReportDate)
	assert.Equal(t, "fixing the deploy pipeline", r.TodayPlan)
	require.NotNil(t, r.YesterdayWork)
	assert.Equal(t, "wrote tests", *r.YesterdayWork)
	assert.Nil(t, r.Blockers)
	assert.Nil(t, r.AdditionalNotes)
	assert.True(t, r.IsWithinWindow)
	assert.Contains(t, r.RawMessage, "Hi, I'm Ada")

	assert.Equal(t, []string{"Ada@2025-11-05"}, h.pub.events)
}

func TestSubmit_AsksForNameThenResumes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := "u2-05112025"

	h.llm.push(`{"user_name": null, "yesterday_work": "fixed bugs", "today_plan": "shipping features", "blockers": null, "additional_notes": null}`)
	reply, err := h.svc.Submit(ctx, session, "Yesterday I fixed bugs. Today I'm shipping features.")
	require.NoError(t, err)
	assert.Equal(t, msgAskName, reply)

	awaiting, err := h.svc.AwaitingName(ctx, session)
	require.NoError(t, err)
	assert.True(t, awaiting)
	pending, ok, err := h.state.Get(ctx, session, convstate.KeyPendingStandup)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, pending, `"today_plan":"shipping features"`)

	var n int64
	require.NoError(t, h.db.Model(&StandupReport{}).Count(&n).Error)
	assert.Zero(t, n)

	h.llm.push(`{"user_name": "Leo"}`)
	reply, err = h.svc.Submit(ctx, session, "I'm Leo")
	require.NoError(t, err)
	assert.Contains(t, reply, "Perfect timing, Leo!")
	assert.Contains(t, h.llm.lastPrompt(), "I'm Leo")

	var rows []StandupReport
	require.NoError(t, h.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Leo", rows[0].UserName)
	assert.Equal(t, "shipping features", rows[0].TodayPlan)
	assert.Equal(t, "Yesterday I fixed bugs. Today I'm shipping features.", rows[0].RawMessage)

	awaiting, err = h.svc.AwaitingName(ctx, session)
	require.NoError(t, err)
	assert.False(t, awaiting)
	_, ok, err = h.state.Get(ctx, session, convstate.KeyPendingStandup)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmit_NameReplyUnclearStaysAwaiting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := "u3-05112025"

	h.llm.push(`{"user_name": "null", "today_plan": "reviews"}`)
	_, err := h.svc.Submit(ctx, session, "Today: reviews")
	require.NoError(t, err)

	h.llm.push(`{"user_name": "null"}`)
	reply, err := h.svc.Submit(ctx, session, "hmm")
	require.NoError(t, err)
	assert.Equal(t, msgNameUnclear, reply)

	h.llm.fail(errors.New("quota"))
	reply, err = h.svc.Submit(ctx, session, "still nothing")
	require.NoError(t, err)
	assert.Equal(t, msgNameFailed, reply)

	awaiting, err := h.svc.AwaitingName(ctx, session)
	require.NoError(t, err)
	assert.True(t, awaiting)

	h.llm.push(`{"user_name": "Kim"}`)
	reply, err = h.svc.Submit(ctx, session, "Kim")
	require.NoError(t, err)
	assert.Contains(t, reply, "Perfect timing, Kim!")
}

func TestSubmit_DuplicateSameDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.llm.push(adaJSON).push(adaJSON)
	_, err := h.svc.Submit(ctx, "s1", "first")
	require.NoError(t, err)

	h.now = h.now.Add(30 * time.Minute)
	reply, err := h.svc.Submit(ctx, "s2", "second")
	require.NoError(t, err)
	assert.Contains(t, reply, "You've already submitted your standup for today.")
	assert.Contains(t, reply, "one submission per person per day")

	var n int64
	require.NoError(t, h.db.Model(&StandupReport{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	assert.Len(t, h.pub.events, 1)
}

func TestSubmit_OutsideWindow(t *testing.T) {
	cases := []struct {
		name  string
		at    time.Time
		quote string
	}{
		{"before", time.Date(2025, 11, 5, 9, 29, 0, 0, wat), "don't open until 9:30 AM WAT"},
		{"after", time.Date(2025, 11, 5, 12, 31, 0, 0, wat), "closed at 12:30 PM WAT"},
		{"after in utc", time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC), "closed at 12:30 PM WAT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.now = tc.at
			h.llm.push(adaJSON)

			reply, err := h.svc.Submit(context.Background(), "s", "Hi, I'm Ada...")
			require.NoError(t, err)
			assert.Contains(t, reply, tc.quote)

			var n int64
			require.NoError(t, h.db.Model(&StandupReport{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestSubmit_MissingTodayPlan(t *testing.T) {
	h := newHarness(t)
	h.llm.push(`{"user_name": "Ada", "yesterday_work": "stuff", "today_plan": null}`)

	reply, err := h.svc.Submit(context.Background(), "s", "I'm Ada, yesterday I did stuff")
	require.NoError(t, err)
	assert.Contains(t, reply, "Hi Ada!")
	assert.Contains(t, reply, "TODAY")

	awaiting, err := h.svc.AwaitingName(context.Background(), "s")
	require.NoError(t, err)
	assert.False(t, awaiting)
}

func TestSubmit_ExtractionFailure(t *testing.T) {
	h := newHarness(t)

	h.llm.push("I am not JSON at all")
	reply, err := h.svc.Submit(context.Background(), "s", "blah")
	require.NoError(t, err)
	assert.Equal(t, msgExtractionFailed, reply)

	h.llm.fail(errors.New("network"))
	reply, err = h.svc.Submit(context.Background(), "s", "blah")
	require.NoError(t, err)
	assert.Equal(t, msgExtractionFailed, reply)

	awaiting, err := h.svc.AwaitingName(context.Background(), "s")
	require.NoError(t, err)
	assert.False(t, awaiting)
}

func TestSubmit_PublishFailureDoesNotFailSubmission(t *testing.T) {
	h := newHarness(t)
	h.pub.err = errors.New("broker down")
	h.llm.push(adaJSON)

	reply, err := h.svc.Submit(context.Background(), "s", "Hi, I'm Ada")
	require.NoError(t, err)
	assert.Contains(t, reply, "Perfect timing, Ada!")
}

func TestGetSummary_CacheHitSkipsLLM(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	day := h.day("2025-11-05")
	at := time.Date(2025, 11, 5, 11, 0, 0, 0, wat)

	require.NoError(t, h.repo.CacheSummary(ctx, day, "cached text", 3, at))
	cached, err := h.repo.GetCachedSummary(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "cached text", cached.FullSummary)
	assert.Equal(t, 3, cached.TotalSubmissions)

	out := h.svc.GetSummary(ctx, "today")
	assert.Zero(t, h.llm.calls())
	assert.Contains(t, out, "# Daily Standup Summary - Today")
	assert.Contains(t, out, "*Cached from 11:00 AM WAT | 3 team members reported*")
	assert.Contains(t, out, "cached text")
}

func TestGetSummary_MissGeneratesAndCaches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "Ada", "2025-11-04", "deploys", ptr("waiting on infra"), time.Date(2025, 11, 4, 9, 45, 0, 0, wat))
	h.seed(t, "Leo", "2025-11-04", "reviews", nil, time.Date(2025, 11, 4, 10, 5, 0, 0, wat))

	h.llm.push("## TEAM OVERVIEW\nAll good.")
	out := h.svc.GetSummary(ctx, "yesterday")
	assert.Equal(t, 1, h.llm.calls())
	assert.Contains(t, out, "# Daily Standup Summary - Yesterday")
	assert.Contains(t, out, "*Generated at 10:00 AM WAT | 2 team members reported*")
	assert.Contains(t, out, "All good.")

	prompt := h.llm.lastPrompt()
	assert.Contains(t, prompt, "Report #1 - Ada")
	assert.Contains(t, prompt, "Blockers: waiting on infra")
	assert.Contains(t, prompt, "Report #2 - Leo")
	assert.Contains(t, prompt, "2 team members reported")

	cached, err := h.repo.GetCachedSummary(ctx, h.day("2025-11-04"))
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "## TEAM OVERVIEW\nAll good.", cached.FullSummary)
	assert.Equal(t, 2, cached.TotalSubmissions)

	out = h.svc.GetSummary(ctx, "yesterday")
	assert.Equal(t, 1, h.llm.calls())
	assert.Contains(t, out, "Cached from")
}

func TestGetSummary_FallbackWhenLLMFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "Ada", "2025-11-05", "deploys", ptr("infra"), time.Date(2025, 11, 5, 9, 45, 0, 0, wat))
	h.seed(t, "Leo", "2025-11-05", "reviews", nil, time.Date(2025, 11, 5, 9, 50, 0, 0, wat))

	h.llm.fail(errors.New("quota"))
	out := h.svc.GetSummary(ctx, "today")
	assert.Contains(t, out, "**Team Updates - Today**")
	assert.Contains(t, out, "2 team members submitted standups:")
	assert.Contains(t, out, "**Ada:**\n- Today: deploys\n- Blockers: infra")
	assert.Contains(t, out, "**Leo:**\n- Today: reviews")

	cached, err := h.repo.GetCachedSummary(ctx, h.day("2025-11-05"))
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Contains(t, cached.FullSummary, "Team Updates")
}

func TestGetSummary_NewSubmissionInvalidatesCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "Leo", "2025-11-05", "reviews", nil, time.Date(2025, 11, 5, 9, 50, 0, 0, wat))

	h.llm.push("summary one")
	h.svc.GetSummary(ctx, "today")

	h.llm.push(adaJSON)
	_, err := h.svc.Submit(ctx, "s", "Hi, I'm Ada")
	require.NoError(t, err)

	h.llm.push("summary two")
	out := h.svc.GetSummary(ctx, "today")
	assert.Contains(t, out, "summary two")
	assert.Contains(t, out, "2 team members reported")
	assert.Equal(t, 3, h.llm.calls())
}

func TestGetSummary_NoReports(t *testing.T) {
	h := newHarness(t)

	out := h.svc.GetSummary(context.Background(), "today")
	assert.Contains(t, out, "No standup reports submitted yet for Today.")
	assert.Contains(t, out, "The standup window is 9:30 AM - 12:30 PM WAT.")

	out = h.svc.GetSummary(context.Background(), "2025-10-01")
	assert.Equal(t, "No standup reports found for October 01, 2025.", out)
	assert.Zero(t, h.llm.calls())
}

func TestWarmSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	day := h.day("2025-11-05")

	require.NoError(t, h.svc.WarmSummary(ctx, day))
	assert.Zero(t, h.llm.calls())

	h.seed(t, "Ada", "2025-11-05", "deploys", nil, time.Date(2025, 11, 5, 9, 45, 0, 0, wat))
	h.llm.push("warm summary")
	require.NoError(t, h.svc.WarmSummary(ctx, day))

	cached, err := h.repo.GetCachedSummary(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "warm summary", cached.FullSummary)
	assert.Equal(t, 1, cached.TotalSubmissions)
}

func TestWarmSummary_ReportDuringGenerationIsNotCachedOver(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	day := h.day("2025-11-05")
	h.seed(t, "Ada", "2025-11-05", "deploys", nil, time.Date(2025, 11, 5, 9, 45, 0, 0, wat))

	h.llm.during = func() {
		h.seed(t, "Bob", "2025-11-05", "migrations", nil, time.Date(2025, 11, 5, 9, 55, 0, 0, wat))
	}
	h.llm.push("summary of Ada only")
	require.NoError(t, h.svc.WarmSummary(ctx, day))

	cached, err := h.repo.GetCachedSummary(ctx, day)
	require.NoError(t, err)
	assert.Nil(t, cached)

	h.llm.push("summary of Ada and Bob")
	out := h.svc.GetSummary(ctx, "today")
	assert.Contains(t, out, "summary of Ada and Bob")
	assert.Contains(t, out, "*Generated at 10:00 AM WAT | 2 team members reported*")

	cached, err = h.repo.GetCachedSummary(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 2, cached.TotalSubmissions)
}

func TestGetUserSummary_DayByDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "Sarah", "2025-11-03", "auth module", ptr("flaky CI"), time.Date(2025, 11, 3, 10, 0, 0, 0, wat))
	h.seed(t, "John", "2025-11-05", "dashboard", nil, time.Date(2025, 11, 5, 9, 40, 0, 0, wat))

	h.llm.push(`{"user_names": ["Sarah", "John"]}`)
	out := h.svc.GetUserSummary(ctx, "Get Sarah and John's updates for this week")

	assert.Contains(t, out, "# Standup Summary for Sarah, John\n")
	assert.Contains(t, out, "**Period:** This Week")
	assert.Contains(t, out, "## Day Before Yesterday (Monday)")
	assert.Contains(t, out, "## Today (Wednesday)")
	assert.Contains(t, out, "**Sarah:**\n- **Today:** auth module\n- **Blockers:** flaky CI\n")
	assert.Contains(t, out, "**John:** Did not submit a standup for November 03, 2025")
	assert.Contains(t, out, "**John:**\n- **Today:** dashboard\n")
	assert.Contains(t, out, "- Total Days: 3\n")
	assert.Contains(t, out, "- Team Members Tracked: 2\n")
	assert.Contains(t, out, "- Submissions: 2 / 6\n")
	assert.Contains(t, out, "- Completion Rate: 33.3%")
	assert.Equal(t, 4, countLines(out, "Did not submit"))
}

func TestGetUserSummary_NotCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.llm.push(`["Sarah"]`).push(`["Sarah"]`)
	first := h.svc.GetUserSummary(ctx, "Sarah's standup today")
	second := h.svc.GetUserSummary(ctx, "Sarah's standup today")

	assert.Equal(t, first, second)
	assert.Equal(t, 2, h.llm.calls())
	assert.Contains(t, first, "- Completion Rate: 0.0%")

	var n int64
	require.NoError(t, h.db.Model(&DailySummary{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestGetUserSummary_NoNames(t *testing.T) {
	h := newHarness(t)

	h.llm.push(`{"user_names": []}`)
	assert.Equal(t, msgNoNames, h.svc.GetUserSummary(context.Background(), "show me updates"))

	h.llm.fail(errors.New("down"))
	assert.Equal(t, msgNoNames, h.svc.GetUserSummary(context.Background(), "show me updates"))
}
