// Package core contains the core domain types for ideagen.
package core

import (
	"fmt"
	"strings"
	"time"
)

// Persona describes a debater generated for a single run. Once a persona is
// selected onto the team it is never modified.
type Persona struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	Viewpoint  string `json:"viewpoint"`
}

// NewPersona creates a validated persona.
func NewPersona(name, background, viewpoint string) (Persona, error) {
	p := Persona{Name: name, Background: background, Viewpoint: viewpoint}
	if err := p.Validate(); err != nil {
		return Persona{}, err
	}
	return p, nil
}

// Validate checks that all required fields are present.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("persona name is required")
	}
	if strings.TrimSpace(p.Background) == "" {
		return fmt.Errorf("persona background is required for %q", p.Name)
	}
	if strings.TrimSpace(p.Viewpoint) == "" {
		return fmt.Errorf("persona viewpoint is required for %q", p.Name)
	}
	return nil
}

// Provenance labels attached to ideas entering a comparative evaluation.
const (
	SourceBaseline    = "baseline"
	SourceNonBaseline = "non_baseline"
)

// Idea is a single proposed research idea. Ideas are value records: every
// transformation (abstract enrichment, tagging, scoring) produces a new Idea
// rather than mutating one in place.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reasoning   string `json:"reasoning,omitempty"`
	Abstract    string `json:"abstract,omitempty"`
	Source      string `json:"source,omitempty"`
	Score       int    `json:"score,omitempty"`
}

// Validate checks that the required text fields are present.
func (i Idea) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("idea title is required")
	}
	if strings.TrimSpace(i.Description) == "" {
		return fmt.Errorf("idea description is required for %q", i.Title)
	}
	return nil
}

// Key returns the textual identity of an idea: exact (title, description,
// reasoning) match. Two Idea values with the same Key are the same idea for
// scoring purposes, regardless of tags or scores attached later.
func (i Idea) Key() string {
	return i.Title + "\n" + i.Description + "\n" + i.Reasoning
}

// SameContent reports whether two ideas are the same by content
// (title + description), the equality used for dedup subset checks.
func (i Idea) SameContent(other Idea) bool {
	return i.Title == other.Title && i.Description == other.Description
}

// WithSource returns a copy of the idea tagged with a provenance label.
func (i Idea) WithSource(source string) Idea {
	i.Source = source
	return i
}

// WithAbstract returns a copy of the idea enriched with an abstract.
func (i Idea) WithAbstract(abstract string) Idea {
	i.Abstract = abstract
	return i
}

// Contribution is one debater's full contribution in a single round.
type Contribution struct {
	DebaterName string `json:"debater_name"`
	Ideas       []Idea `json:"proposed_ideas"`
}

// Criticism is the critic's analysis of one round.
type Criticism struct {
	Critique string `json:"critique"`
}

// RoundSummary is the moderator's summary of one round; it chains into the
// next round's context.
type RoundSummary struct {
	Summary string `json:"summary"`
}

// IdeaAbstract pairs a final idea title with its generated prose abstract.
type IdeaAbstract struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// RankedIdea is an idea with its tournament score and provenance tag.
type RankedIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reasoning   string `json:"reasoning,omitempty"`
	Source      string `json:"source,omitempty"`
	Score       int    `json:"score"`
}

// Idea returns the underlying idea record.
func (r RankedIdea) Idea() Idea {
	return Idea{
		Title:       r.Title,
		Description: r.Description,
		Reasoning:   r.Reasoning,
		Source:      r.Source,
		Score:       r.Score,
	}
}

// DebateState is the complete workflow state threaded through the debate
// state machine. Updates are additive: transition functions return a new
// state via Clone, history only grows, and completed-round data is never
// rewritten.
type DebateState struct {
	InitialQuery string   `json:"initial_query"`
	Topics       []string `json:"topics"`
	Intention    string   `json:"intention"`
	RunTimestamp string   `json:"run_timestamp"`

	PersonaPool   []Persona `json:"persona_pool"`
	Personalities []Persona `json:"personalities"`

	CurrentRound       int            `json:"current_round_number"`
	RoundContributions []Contribution `json:"round_contributions"`
	CurrentCriticism   *Criticism     `json:"current_criticism,omitempty"`
	CurrentSummary     *RoundSummary  `json:"current_summary,omitempty"`

	// History is the append-only log of formatted round summaries.
	History []string `json:"history"`

	FinalIdeas             []Idea         `json:"final_ideas"`
	FinalAbstracts         []IdeaAbstract `json:"final_ideas_with_abstracts,omitempty"`
	FinalDeduplicatedIdeas []Idea         `json:"final_deduplicated_ideas"`
}

// NewDebateState creates the initial state for a run with empty collections.
func NewDebateState(query string, topics []string, intention, runTimestamp string) *DebateState {
	return &DebateState{
		InitialQuery: query,
		Topics:       append([]string(nil), topics...),
		Intention:    intention,
		RunTimestamp: runTimestamp,
	}
}

// Clone returns a deep copy of the state. Transition functions operate on the
// copy so that a failed transition leaves the previous state intact.
func (s *DebateState) Clone() *DebateState {
	next := *s
	next.Topics = append([]string(nil), s.Topics...)
	next.PersonaPool = append([]Persona(nil), s.PersonaPool...)
	next.Personalities = append([]Persona(nil), s.Personalities...)
	next.RoundContributions = append([]Contribution(nil), s.RoundContributions...)
	next.History = append([]string(nil), s.History...)
	next.FinalIdeas = append([]Idea(nil), s.FinalIdeas...)
	next.FinalAbstracts = append([]IdeaAbstract(nil), s.FinalAbstracts...)
	next.FinalDeduplicatedIdeas = append([]Idea(nil), s.FinalDeduplicatedIdeas...)
	if s.CurrentCriticism != nil {
		c := *s.CurrentCriticism
		next.CurrentCriticism = &c
	}
	if s.CurrentSummary != nil {
		sum := *s.CurrentSummary
		next.CurrentSummary = &sum
	}
	return &next
}

// RunStatus represents the lifecycle of a pipeline run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Run is the persisted record of a single pipeline run.
type Run struct {
	ID          string     `json:"id"`
	Timestamp   string     `json:"timestamp"`
	Query       string     `json:"query"`
	ConfigName  string     `json:"config_name"`
	Status      RunStatus  `json:"status"`
	StatePath   string     `json:"state_path,omitempty"`
	ReportPath  string     `json:"report_path,omitempty"`
	DedupPath   string     `json:"dedup_path,omitempty"`
	RankedPath  string     `json:"ranked_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunSummary is a lightweight representation for listing runs.
type RunSummary struct {
	ID         string    `json:"id"`
	Timestamp  string    `json:"timestamp"`
	Query      string    `json:"query"`
	ConfigName string    `json:"config_name"`
	Status     RunStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
