package cmdflow

import "fmt"

// Template is a palette entry: everything needed to instantiate a node of one block type.
type Template struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Icon     string   `json:"icon"`
	Data     NodeData `json:"data"`
}

func (t Template) clone() Template {
	t.Data = t.Data.clone()
	return t
}

// Catalog is a read-only registry of block templates.
// The first template registered for a kind is that kind's default.
type Catalog struct {
	templates []Template
	byID      map[string]int
	byKind    map[Kind]int
}

// NewCatalog builds a catalog from templates. It panics on duplicate IDs, templates
// with a nil payload, or a category that does not belong to the kind: those are defects
// in the caller's table, not runtime conditions.
func NewCatalog(templates ...Template) *Catalog {
	c := &Catalog{
		byID:   make(map[string]int, len(templates)),
		byKind: make(map[Kind]int),
	}
	for _, t := range templates {
		cat, ok := CategoryOf(t.Kind)
		if !ok || cat != t.Category {
			panic(fmt.Sprintf("cmdflow: template %q has kind %q in category %q", t.ID, t.Kind, t.Category))
		}
		if t.Data == nil || t.Data.Kind() != t.Kind {
			panic(fmt.Sprintf("cmdflow: template %q has no %s data", t.ID, t.Kind))
		}
		if _, dup := c.byID[t.ID]; dup {
			panic(fmt.Sprintf("cmdflow: duplicate template %q", t.ID))
		}
		c.byID[t.ID] = len(c.templates)
		if _, ok := c.byKind[t.Kind]; !ok {
			c.byKind[t.Kind] = len(c.templates)
		}
		c.templates = append(c.templates, t.clone())
	}
	return c
}

// Template returns the default template for a kind.
func (c *Catalog) Template(k Kind) (Template, error) {
	i, ok := c.byKind[k]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return c.templates[i].clone(), nil
}

// Lookup returns the template with the given block ID.
func (c *Catalog) Lookup(id string) (Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownBlock, id)
	}
	return c.templates[i].clone(), nil
}

// ListByCategory returns the templates of a palette category in registration order.
func (c *Catalog) ListByCategory(cat Category) []Template {
	out := []Template{}
	for _, t := range c.templates {
		if t.Category == cat {
			out = append(out, t.clone())
		}
	}
	return out
}

const (
	colorTrigger   = "yellow"
	colorOption    = "purple"
	colorAction    = "blue"
	colorCondition = "green"
)

func option(id, label, icon string, typ OptionType) Template {
	return Template{
		ID: id, Kind: KindOption, Category: CategoryOptions,
		Label: label, Color: colorOption, Icon: icon,
		Data: OptionData{Name: string(typ), Description: "Describe this option", Type: typ},
	}
}

func action(id, label, icon string, d ActionData) Template {
	if d.TargetChannelMode == "" {
		d.TargetChannelMode = ChannelCurrent
	}
	return Template{
		ID: id, Kind: KindAction, Category: CategoryActions,
		Label: label, Color: colorAction, Icon: icon,
		Data: d,
	}
}

var defaultCatalog = NewCatalog(
	Template{
		ID: "trigger.slash_command", Kind: KindTrigger, Category: CategoryTriggers,
		Label: "new-command", Color: colorTrigger, Icon: "terminal",
		Data: TriggerData{Name: "new-command", Description: "A new command", CooldownScope: CooldownUser},
	},

	option("option.string", "Text Option", "type", OptionString),
	option("option.integer", "Integer Option", "hash", OptionInteger),
	option("option.number", "Number Option", "percent", OptionNumber),
	option("option.boolean", "True/False Option", "toggle", OptionBoolean),
	option("option.user", "User Option", "user", OptionUser),
	option("option.channel", "Channel Option", "hash-channel", OptionChannel),
	option("option.role", "Role Option", "shield", OptionRole),

	action("action.send_message", "Send Message", "message", ActionData{
		ActionKind: ActionSendMessage, Content: "Hello!",
	}),
	action("action.send_embed", "Send Embed", "layout", ActionData{
		ActionKind: ActionSendEmbed, Title: "Embed title", Description: "Embed description", Color: "#5865F2",
	}),
	action("action.add_role", "Add Role", "user-plus", ActionData{ActionKind: ActionAddRole}),
	action("action.remove_role", "Remove Role", "user-minus", ActionData{ActionKind: ActionRemoveRole}),
	action("action.kick_member", "Kick Member", "log-out", ActionData{ActionKind: ActionKickMember}),
	action("action.ban_member", "Ban Member", "slash", ActionData{ActionKind: ActionBanMember}),
	action("action.timeout_member", "Timeout Member", "clock", ActionData{
		ActionKind: ActionTimeoutMember, DurationSeconds: 60,
	}),

	Template{
		ID: "condition.compare", Kind: KindCondition, Category: CategoryConditions,
		Label: "Condition", Color: colorCondition, Icon: "git-branch",
		Data: ConditionData{Operator: OpEquals},
	},
	Template{
		ID: "condition.if_else", Kind: KindCondition, Category: CategoryConditions,
		Label: "If / Else", Color: colorCondition, Icon: "git-fork",
		Data: ConditionData{Operator: OpEquals, HasElseBranch: true},
	},
)

// DefaultCatalog returns the built-in block catalog.
func DefaultCatalog() *Catalog { return defaultCatalog }
