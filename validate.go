package cmdflow

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDescriptionLength bounds command and option descriptions, in code points.
	MaxDescriptionLength = 100
	// MaxOptions is the most options a command may declare.
	MaxOptions = 25
)

// Problem is one reason a graph cannot be saved, attached to the field that caused it.
type Problem struct {
	NodeID  string `json:"nodeId"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError blocks a save. Its message lists every problem on its own line.
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("cmdflow: command cannot be saved:")
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "\n- %s %s", p.Field, p.Message)
	}
	return b.String()
}

// ForField returns the problems reported against one node field.
func (e *ValidationError) ForField(nodeID, field string) []Problem {
	var out []Problem
	for _, p := range e.Problems {
		if p.NodeID == nodeID && p.Field == field {
			out = append(out, p)
		}
	}
	return out
}

// CommandName is the name a trigger is saved under: its data name, lowercased.
func CommandName(t TriggerData) string {
	return strings.ToLower(strings.TrimSpace(t.Name))
}

// Validate checks everything a save requires beyond the graph's structural invariants.
// It returns nil or a *ValidationError.
func (g *Graph) Validate() error {
	var problems []Problem
	report := func(nodeID, field, msg string) {
		problems = append(problems, Problem{NodeID: nodeID, Field: field, Message: msg})
	}

	t := g.trigger()
	td, _ := t.Data.(TriggerData)
	for _, msg := range NameProblems(CommandName(td)) {
		report(t.ID, "name", msg)
	}
	checkDescription(td.Description, func(msg string) { report(t.ID, "description", msg) })
	if td.CooldownSeconds < 0 {
		report(t.ID, "cooldownSeconds", "must not be negative")
	}
	switch td.CooldownScope {
	case "", CooldownUser, CooldownServer, CooldownGlobal:
	default:
		report(t.ID, "cooldownScope", fmt.Sprintf("has unknown value %q", td.CooldownScope))
	}

	var options int
	seen := map[string]bool{}
	sawOptional := false
	for _, n := range g.nodes {
		switch d := n.Data.(type) {
		case OptionData:
			options++
			for _, msg := range NameProblems(d.Name) {
				report(n.ID, "name", msg)
			}
			if seen[d.Name] {
				report(n.ID, "name", fmt.Sprintf("%q is used by another option", d.Name))
			}
			seen[d.Name] = true
			checkDescription(d.Description, func(msg string) { report(n.ID, "description", msg) })
			if d.Required && sawOptional {
				report(n.ID, "required", "required options must come before optional ones")
			}
			sawOptional = sawOptional || !d.Required
			if d.MinValue != nil && d.MaxValue != nil && *d.MinValue > *d.MaxValue {
				report(n.ID, "minValue", "must not exceed maxValue")
			}
			if !knownOptionType(d.Type) {
				report(n.ID, "type", fmt.Sprintf("has unknown value %q", d.Type))
			}
		case ActionData:
			if !knownActionKind(d.ActionKind) {
				report(n.ID, "actionKind", fmt.Sprintf("has unknown value %q", d.ActionKind))
			}
			if d.TargetChannelMode == ChannelSpecific && d.ChannelID == "" {
				report(n.ID, "channelId", "is required when posting to a specific channel")
			}
		case ConditionData:
			if !knownOperator(d.Operator) {
				report(n.ID, "operator", fmt.Sprintf("has unknown value %q", d.Operator))
			}
		}
	}
	if options > MaxOptions {
		report(t.ID, "options", fmt.Sprintf("must not exceed %d", MaxOptions))
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func checkDescription(s string, report func(string)) {
	if n := utf8.RuneCountInString(strings.TrimSpace(s)); n < 1 || n > MaxDescriptionLength {
		report(fmt.Sprintf("must be between 1 and %d characters", MaxDescriptionLength))
	}
}

func knownOptionType(t OptionType) bool {
	switch t {
	case OptionString, OptionInteger, OptionNumber, OptionBoolean, OptionUser, OptionChannel, OptionRole:
		return true
	}
	return false
}

func knownActionKind(k ActionKind) bool {
	switch k {
	case ActionSendMessage, ActionSendEmbed, ActionAddRole, ActionRemoveRole,
		ActionKickMember, ActionBanMember, ActionTimeoutMember:
		return true
	}
	return false
}

func knownOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpStartsWith, OpGreaterThan, OpLessThan, OpHasRole:
		return true
	}
	return false
}
