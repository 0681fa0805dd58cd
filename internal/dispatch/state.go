package dispatch

import "fmt"

// State шаг жизненного цикла одного вызова Dispatch.
type State int

const (
	Sent State = iota
	Decoded
	TransportFailed
	Resolving
	Retried
	Unresolved
	Failed
)

var stateNames = [...]string{
	Sent:            "sent",
	Decoded:         "decoded",
	TransportFailed: "transport_failed",
	Resolving:       "resolving",
	Retried:         "retried",
	Unresolved:      "unresolved",
	Failed:          "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions допустимые переходы. Retried достижим только из Resolving,
// а Resolving только из TransportFailed, поэтому повтор возможен один раз.
// Sent -> Failed: ответ получен, но не декодировался, либо ошибка не транспортная.
var transitions = map[State][]State{
	Sent:            {Decoded, TransportFailed, Failed},
	TransportFailed: {Resolving, Failed},
	Resolving:       {Retried, Unresolved},
	Retried:         {Decoded, Failed},
}

type machine struct {
	state   State
	observe func(State)
}

func newMachine(observe func(State)) *machine {
	m := &machine{state: Sent, observe: observe}
	if observe != nil {
		observe(Sent)
	}
	return m
}

func (m *machine) to(next State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			if m.observe != nil {
				m.observe(next)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", errInvalidTransition, m.state, next)
}
