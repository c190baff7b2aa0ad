package triage

// Endpoint describes one route exposed by the agent.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Field is a minimal JSON-schema property.
type Field struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Items       *Field   `json:"items,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// Schema is an object schema with named properties.
type Schema struct {
	Type       string           `json:"type"`
	Properties map[string]Field `json:"properties"`
	Required   []string         `json:"required,omitempty"`
}

// Metadata is the self-description served at /metadata.
type Metadata struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Author      string              `json:"author"`
	Endpoints   map[string]Endpoint `json:"endpoints"`
	Schema      struct {
		Input  Schema `json:"input"`
		Output Schema `json:"output"`
	} `json:"schema"`
}

// BuildMetadata describes the agent's analyze contract.
func BuildMetadata(version string) Metadata {
	if version == "" {
		version = DefaultAgentVersion
	}
	strings := &Field{Type: "string"}
	zero, one := 0.0, 1.0

	m := Metadata{
		Name:        AgentName,
		Version:     version,
		Description: "AI-powered GitHub issue triage agent",
		Author:      "Triage.AI Team",
		Endpoints: map[string]Endpoint{
			"analyze": {Method: "POST", Path: "/analyze", Description: "Analyze GitHub issue and provide triage recommendations"},
		},
	}
	m.Schema.Input = Schema{
		Type: "object",
		Properties: map[string]Field{
			"title":      {Type: "string", Description: "Issue title"},
			"body":       {Type: "string", Description: "Issue description"},
			"comments":   {Type: "array", Items: strings, Description: "Optional issue comments"},
			"labels":     {Type: "array", Items: strings, Description: "Existing labels"},
			"repository": {Type: "string", Description: "Repository name"},
		},
		Required: []string{"title", "body"},
	}
	m.Schema.Output = Schema{
		Type: "object",
		Properties: map[string]Field{
			"priority": {
				Type:        "string",
				Enum:        []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityCritical)},
				Description: "Issue priority level",
			},
			"severity": {
				Type:        "string",
				Enum:        []string{string(SeverityMinor), string(SeverityModerate), string(SeverityMajor), string(SeverityCritical)},
				Description: "Issue severity level",
			},
			"suggested_labels": {Type: "array", Items: strings, Description: "Recommended labels for the issue"},
			"summary":          {Type: "string", Description: "Brief summary of the issue"},
			"next_steps":       {Type: "array", Items: strings, Description: "Recommended next steps"},
			"confidence":       {Type: "number", Minimum: &zero, Maximum: &one, Description: "Confidence score of the analysis"},
			"reasoning":        {Type: "string", Description: "Explanation of the triage decision"},
		},
	}
	return m
}
