package a2a

type AgentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	URL                string       `json:"url"`
	Version            string       `json:"version"`
	Capabilities       Capabilities `json:"capabilities"`
	DefaultInputModes  []string     `json:"defaultInputModes"`
	DefaultOutputModes []string     `json:"defaultOutputModes"`
	Skills             []Skill      `json:"skills"`
}

type Capabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

const AgentVersion = "1.0.0"

// NewAgentCard describes the agent at url; window is the human-readable
// submission window, e.g. "9:30 AM - 12:30 PM WAT".
func NewAgentCard(name, url, window string) AgentCard {
	return AgentCard{
		Name:               name,
		Description:        "AI-powered daily standup coordinator that collects updates and generates team summaries.",
		URL:                url,
		Version:            AgentVersion,
		Capabilities:       Capabilities{StateTransitionHistory: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []Skill{
			{
				ID:          "submit_standup",
				Name:        "Submit standup",
				Description: "Record today's standup update (" + window + "). Name and today's plan are required.",
				Examples:    []string{"Hi, I'm Sarah. Yesterday I finished the auth module. Today I'm working on the dashboard."},
			},
			{
				ID:          "get_summary",
				Name:        "Team summary",
				Description: "Summarize the team's standups for a day.",
				Examples:    []string{"What's the team summary?", "Show me yesterday's updates"},
			},
			{
				ID:          "get_user_summary",
				Name:        "Member summary",
				Description: "Show specific members' standups over a date range.",
				Examples:    []string{"Get John and Mike's updates for this week"},
			},
		},
	}
}
