package standup

import (
	"fmt"
	"strings"
	"time"
)

func extractionPrompt(raw string) string {
	return fmt.Sprintf(`You are a standup report parser. Extract structured information from the following standup message.

STANDUP MESSAGE:
%s

Extract the following fields (use null if not mentioned):
- user_name: The person's name (CRITICAL - must be present)
- yesterday_work: What they did yesterday
- today_plan: What they're working on today (CRITICAL - must be present)
- blockers: Any blockers or issues
- additional_notes: Any other notes or comments

Respond ONLY with valid JSON in this exact format:
{
    "user_name": "name or null",
    "yesterday_work": "text or null",
    "today_plan": "text or null",
    "blockers": "text or null",
    "additional_notes": "text or null"
}

DO NOT include any explanations, only the JSON object.`, raw)
}

func nameExtractionPrompt(reply string) string {
	return fmt.Sprintf(`You are a name extraction specialist. The user was asked for their name and replied:

%s

Extract their name and respond ONLY with valid JSON:
{
    "user_name": "extracted name or null"
}

DO NOT include any explanations, only the JSON object.`, reply)
}

func userNamesPrompt(query string) string {
	return fmt.Sprintf(`You extract team member names from a request about standup reports.

REQUEST:
%s

List every person the request asks about. Strip possessives ("Sarah's" is "Sarah").
Do not include the requester and do not invent names.

Respond ONLY with valid JSON:
{
    "user_names": ["Name", "Another Name"]
}

Use an empty list if no names are mentioned.
DO NOT include any explanations, only the JSON object.`, query)
}

func summaryPrompt(dateLabel string, reports []StandupReport, loc *time.Location) string {
	var b strings.Builder
	for i, r := range reports {
		fmt.Fprintf(&b, `
Report #%d - %s:
- Yesterday: %s
- Today: %s
- Blockers: %s
- Additional Notes: %s
- Submitted at: %s
`, i+1, r.UserName,
			orDefault(r.YesterdayWork, "Not provided"),
			r.TodayPlan,
			orDefault(r.Blockers, "None"),
			orDefault(r.AdditionalNotes, "None"),
			r.SubmittedAt.In(loc).Format(clockLayout))
	}

	return fmt.Sprintf(`You are an expert engineering manager analyzing daily standup reports.

Here are the standup submissions for %s (%d team members reported):
%s
Generate a comprehensive summary with these sections:

1. **TEAM OVERVIEW**: 2-3 sentences about overall team progress and focus areas
2. **INDIVIDUAL UPDATES**: List each person's update clearly with their name, yesterday's work, today's plan, and blockers
3. **COLLABORATION OPPORTUNITIES**: Identify where team members' work overlaps or where they could help each other
4. **ACTIVE BLOCKERS**: List all blockers with priority assessment (HIGH/MEDIUM/LOW)
5. **INSIGHTS**: Provide 2-3 actionable insights or recommendations for the team lead

Be specific, actionable, and highlight both achievements and concerns.
Format in markdown with clear headers and bullet points.
Use emojis sparingly for visual appeal (🟢 for active work, ⚠️ for blockers, 🤝 for collaboration, 💡 for insights).

Include a header with date and participation rate.`, dateLabel, len(reports), b.String())
}

func orDefault(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}
