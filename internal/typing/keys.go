package typing

import "unicode/utf8"

// Key names understood by Classify.
const (
	KeyEnter     = "Enter"
	KeyTab       = "Tab"
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
)

// ActionKind tells the host what to do with a key press.
type ActionKind int

const (
	// ActionIgnore drops the key.
	ActionIgnore ActionKind = iota
	// ActionType submits Action.Char to the session.
	ActionType
	// ActionPause pauses the session.
	ActionPause
	// ActionSwallow consumes the key without effect. Used for Backspace,
	// since sessions never delete characters.
	ActionSwallow
)

func (k ActionKind) String() string {
	switch k {
	case ActionType:
		return "type"
	case ActionPause:
		return "pause"
	case ActionSwallow:
		return "swallow"
	default:
		return "ignore"
	}
}

// Action is a classified key press.
type Action struct {
	Kind ActionKind
	Char rune
	// PreventDefault is set when the host must not apply its own handling,
	// so that Enter and Tab do not move focus off the typing surface.
	PreventDefault bool
}

// Classify normalizes a raw key name into an Action.
func Classify(key string) Action {
	switch key {
	case KeyEnter:
		return Action{Kind: ActionType, Char: '\n', PreventDefault: true}
	case KeyTab:
		return Action{Kind: ActionType, Char: '\t', PreventDefault: true}
	case KeyEscape:
		return Action{Kind: ActionPause}
	case KeyBackspace:
		return Action{Kind: ActionSwallow, PreventDefault: true}
	}
	if utf8.RuneCountInString(key) != 1 {
		return Action{Kind: ActionIgnore}
	}
	r, _ := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError || r < ' ' || r == 0x7f {
		return Action{Kind: ActionIgnore}
	}
	return Action{Kind: ActionType, Char: r, PreventDefault: true}
}
