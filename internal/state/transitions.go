package state

// validTransitions lists the permitted moves besides staying put and returning to idle.
var validTransitions = map[State][]State{
	StateIdle: {
		StateSelectingQuantity,
	},
	StateSelectingQuantity: {
		StateEnteringRecipient,
	},
	StateEnteringRecipient: {
		StateAwaitingConfirmation,
		StateSelectingQuantity,
	},
	StateAwaitingConfirmation: {
		StateSelectingQuantity,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	if from == to {
		return true
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
