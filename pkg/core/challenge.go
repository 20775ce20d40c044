// pkg/core/challenge.go
package core

// Challenge is externally authored content. The engine only reads the ids,
// objective descriptions and unlock links.
type Challenge struct {
	ID               string      `json:"id"`
	Title            string      `json:"title,omitempty"`
	Description      string      `json:"description,omitempty"`
	RobotKind        RobotKind   `json:"robotKind,omitempty"`
	Objectives       []Objective `json:"objectives"`
	Hints            []string    `json:"hints,omitempty"`
	NextChallengeIDs []string    `json:"nextChallengeIds,omitempty"`
}

// Objective is a single goal inside a challenge, described in free text.
type Objective struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}
