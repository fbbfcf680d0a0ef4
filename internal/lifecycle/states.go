package lifecycle

import "codavert-workers/internal/models"

// reachable is the set of targets every non-terminal state may move to,
// itself included. NEW can never be re-entered and OFFER_ACCEPTED is only
// reached through AcceptOffer.
var reachable = []models.ApplicationStatus{
	models.StatusReviewing,
	models.StatusShortlisted,
	models.StatusInterviewed,
	models.StatusHired,
	models.StatusRejected,
	models.StatusWithdrawn,
}

// transitions maps a source state to its allowed targets.
var transitions = buildTransitions()

func buildTransitions() map[models.ApplicationStatus]map[models.ApplicationStatus]bool {
	table := make(map[models.ApplicationStatus]map[models.ApplicationStatus]bool)
	for _, from := range models.AllStatuses {
		allowed := make(map[models.ApplicationStatus]bool)
		if !from.Terminal() {
			for _, to := range reachable {
				allowed[to] = true
			}
		}
		table[from] = allowed
	}
	return table
}

// CanTransition reports whether SetStatus may move a record from one state
// to another.
func CanTransition(from, to models.ApplicationStatus) bool {
	return transitions[from][to]
}

// AllowedTargets lists the states reachable from from, in lifecycle order.
func AllowedTargets(from models.ApplicationStatus) []models.ApplicationStatus {
	var out []models.ApplicationStatus
	for _, st := range models.AllStatuses {
		if transitions[from][st] {
			out = append(out, st)
		}
	}
	return out
}

// Effect is something entering a state causes. The set is closed.
type Effect interface {
	effect()
}

// markReviewed stamps reviewedAt the first time review begins.
type markReviewed struct{}

// markHired requires hire details and stamps hiredAt.
type markHired struct{}

// notify queues a candidate email once the transition commits.
type notify struct {
	kind models.EventKind
}

func (markReviewed) effect() {}
func (markHired) effect() {}
func (notify) effect() {}

// effectsOf returns what entering to produces.
func effectsOf(to models.ApplicationStatus) []Effect {
	switch to {
	case models.StatusReviewing, models.StatusShortlisted, models.StatusInterviewed:
		return []Effect{markReviewed{}}
	case models.StatusHired:
		return []Effect{markHired{}, notify{kind: models.EventOfferLetter}}
	case models.StatusRejected:
		return []Effect{notify{kind: models.EventRejection}}
	default:
		return nil
	}
}
