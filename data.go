package cmdflow

import (
	"encoding/json"
	"fmt"
)

// NodeData is the kind-specific payload of a node.
// The set of implementations is closed: TriggerData, OptionData, ActionData and ConditionData.
type NodeData interface {
	Kind() Kind
	clone() NodeData
}

// CooldownScope selects who shares a command cooldown.
type CooldownScope string

const (
	CooldownUser   CooldownScope = "user"
	CooldownServer CooldownScope = "server"
	CooldownGlobal CooldownScope = "global"
)

// TriggerData describes how the command is invoked.
type TriggerData struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	CooldownSeconds int           `json:"cooldownSeconds"`
	CooldownScope   CooldownScope `json:"cooldownScope"`
	HideReplies     bool          `json:"hideReplies"`
}

func (TriggerData) Kind() Kind        { return KindTrigger }
func (d TriggerData) clone() NodeData { return d }

// OptionType is the value type a command option accepts.
type OptionType string

const (
	OptionString  OptionType = "string"
	OptionInteger OptionType = "integer"
	OptionNumber  OptionType = "number"
	OptionBoolean OptionType = "boolean"
	OptionUser    OptionType = "user"
	OptionChannel OptionType = "channel"
	OptionRole    OptionType = "role"
)

// OptionData is one argument the user supplies when invoking the command.
type OptionData struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        OptionType `json:"type"`
	Required    bool       `json:"required"`
	MinValue    *float64   `json:"minValue,omitempty"`
	MaxValue    *float64   `json:"maxValue,omitempty"`
}

func (OptionData) Kind() Kind { return KindOption }

func (d OptionData) clone() NodeData {
	if d.MinValue != nil {
		v := *d.MinValue
		d.MinValue = &v
	}
	if d.MaxValue != nil {
		v := *d.MaxValue
		d.MaxValue = &v
	}
	return d
}

// ActionKind names what an action node does when reached.
type ActionKind string

const (
	ActionSendMessage   ActionKind = "send_message"
	ActionSendEmbed     ActionKind = "send_embed"
	ActionAddRole       ActionKind = "add_role"
	ActionRemoveRole    ActionKind = "remove_role"
	ActionKickMember    ActionKind = "kick_member"
	ActionBanMember     ActionKind = "ban_member"
	ActionTimeoutMember ActionKind = "timeout_member"
)

// ChannelMode selects where an action posts its output.
type ChannelMode string

const (
	ChannelCurrent  ChannelMode = "current"
	ChannelSpecific ChannelMode = "specific"
	ChannelDM       ChannelMode = "dm"
)

// ActionData configures an action node. Fields irrelevant to ActionKind stay empty.
type ActionData struct {
	ActionKind        ActionKind  `json:"actionKind"`
	Content           string      `json:"content,omitempty"`
	Title             string      `json:"title,omitempty"`
	Description       string      `json:"description,omitempty"`
	Color             string      `json:"color,omitempty"`
	TargetChannelMode ChannelMode `json:"targetChannelMode"`
	ChannelID         string      `json:"channelId,omitempty"`
	RoleID            string      `json:"roleId,omitempty"`
	Reason            string      `json:"reason,omitempty"`
	DurationSeconds   int         `json:"durationSeconds,omitempty"`
	Ephemeral         bool        `json:"ephemeral"`
}

func (ActionData) Kind() Kind        { return KindAction }
func (d ActionData) clone() NodeData { return d }

// Operator compares the two sides of a condition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpHasRole     Operator = "has_role"
)

// ConditionData is a comparison with a "then" path (output) and an optional else path.
type ConditionData struct {
	LeftValue     string   `json:"leftValue"`
	Operator      Operator `json:"operator"`
	RightValue    string   `json:"rightValue"`
	HasElseBranch bool     `json:"hasElseBranch"`
	RunAllMatches bool     `json:"runAllMatches"`
}

func (ConditionData) Kind() Kind        { return KindCondition }
func (d ConditionData) clone() NodeData { return d }

// zeroData returns the empty data variant for a kind.
func zeroData(k Kind) (NodeData, error) {
	switch k {
	case KindTrigger:
		return TriggerData{}, nil
	case KindOption:
		return OptionData{}, nil
	case KindAction:
		return ActionData{}, nil
	case KindCondition:
		return ConditionData{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

func decodeData(k Kind, raw json.RawMessage) (NodeData, error) {
	switch k {
	case KindTrigger:
		var d TriggerData
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindOption:
		var d OptionData
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindAction:
		var d ActionData
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindCondition:
		var d ConditionData
		err := json.Unmarshal(raw, &d)
		return d, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}
