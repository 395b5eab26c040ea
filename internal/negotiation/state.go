package negotiation

// State is the position of a Session in the offer/answer exchange.
type State int

const (
	Idle State = iota
	OfferCreated
	OfferReceived
	AnswerCreated
	AnswerReceived
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case OfferCreated:
		return "offer-created"
	case OfferReceived:
		return "offer-received"
	case AnswerCreated:
		return "answer-created"
	case AnswerReceived:
		return "answer-received"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
